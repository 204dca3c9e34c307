package services

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/westernheights/website/internal/mailer"
	"github.com/westernheights/website/internal/metrics"
)

// ContactForm is one inbound contact-form submission. Name, Email and Message
// are required; everything else is optional.
type ContactForm struct {
	Name      string `json:"name" form:"name"`
	Email     string `json:"email" form:"email"`
	Phone     string `json:"phone" form:"phone"`
	Company   string `json:"company" form:"company"`
	Service   string `json:"service" form:"service"`
	Message   string `json:"message" form:"message"`
	IP        string `json:"ip,omitempty"`
	UserAgent string `json:"user_agent,omitempty"`
}

// Submission is the persisted form of a ContactForm, enriched with metadata.
type Submission struct {
	ContactForm
	Timestamp string `json:"timestamp"`
}

// FormResult is the outcome of processing one submission.
type FormResult struct {
	Success       bool     `json:"success"`
	Errors        []string `json:"errors,omitempty"`
	Message       string   `json:"message"`
	SubmissionID  string   `json:"submission_id,omitempty"`
	EmailSent     bool     `json:"email_sent"`
	AutoReplySent bool     `json:"auto_reply_sent"`
	Timestamp     string   `json:"timestamp"`
}

// ContactService validates, persists and relays contact-form submissions.
type ContactService struct {
	submissionsDir string
	adminEmail     string
	mailer         mailer.Mailer
	saveToFile     bool
	sendEmail      bool
	now            func() time.Time
}

// NewContactService creates and returns a new ContactService.
func NewContactService(submissionsDir, adminEmail string, m mailer.Mailer, saveToFile, sendEmail bool) *ContactService {
	return &ContactService{
		submissionsDir: submissionsDir,
		adminEmail:     adminEmail,
		mailer:         m,
		saveToFile:     saveToFile,
		sendEmail:      sendEmail,
		now:            time.Now,
	}
}

// ValidateForm checks the required fields and basic field formats. It returns
// the full list of problems so the frontend can show all of them at once.
func (s *ContactService) ValidateForm(form ContactForm) []string {
	var errs []string

	if strings.TrimSpace(form.Name) == "" {
		errs = append(errs, "name is required")
	}
	if strings.TrimSpace(form.Email) == "" {
		errs = append(errs, "email is required")
	} else if !strings.Contains(form.Email, "@") {
		errs = append(errs, "invalid email address")
	}
	if strings.TrimSpace(form.Message) == "" {
		errs = append(errs, "message is required")
	}

	if form.Phone != "" && !isPhoneNumber(form.Phone) {
		errs = append(errs, "invalid phone number format")
	}

	return errs
}

// isPhoneNumber accepts digits with spaces, dashes and a plus prefix.
func isPhoneNumber(phone string) bool {
	stripped := strings.Map(func(r rune) rune {
		if r == ' ' || r == '-' || r == '+' {
			return -1
		}
		return r
	}, phone)
	if stripped == "" {
		return false
	}
	for _, r := range stripped {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// SaveSubmission writes the submission as a timestamped JSON file under the
// submissions directory and returns the generated submission id.
func (s *ContactService) SaveSubmission(form ContactForm) (string, error) {
	if err := os.MkdirAll(s.submissionsDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create submissions directory: %w", err)
	}

	id := fmt.Sprintf("submission_%s_%s", s.now().Format("20060102_150405"), uuid.NewString()[:8])
	submission := Submission{
		ContactForm: form,
		Timestamp:   s.now().Format(time.RFC3339),
	}

	raw, err := json.MarshalIndent(submission, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to serialize submission: %w", err)
	}

	path := filepath.Join(s.submissionsDir, id+".json")
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return "", fmt.Errorf("failed to save submission: %w", err)
	}

	log.Printf("Submission saved to %s", path)
	return id, nil
}

// ProcessForm is the main entry point for a contact submission: validate,
// persist, notify the admin and auto-reply to the sender. Persistence or mail
// failures degrade gracefully; only validation rejects the submission.
func (s *ContactService) ProcessForm(form ContactForm) FormResult {
	log.Printf("Processing contact form submission from %q", form.Name)

	if errs := s.ValidateForm(form); len(errs) > 0 {
		log.Printf("WARNING: Form validation failed: %v", errs)
		metrics.ContactSubmissions.WithLabelValues("invalid").Inc()
		return FormResult{
			Success:   false,
			Errors:    errs,
			Message:   "Form validation failed",
			Timestamp: s.now().Format(time.RFC3339),
		}
	}

	var submissionID string
	if s.saveToFile {
		id, err := s.SaveSubmission(form)
		if err != nil {
			log.Printf("ERROR: Failed to save submission: %v", err)
		} else {
			submissionID = id
		}
	}

	emailSent := s.notifyAdmin(form)
	autoReplySent := s.sendAutoReply(form)

	metrics.ContactSubmissions.WithLabelValues("accepted").Inc()
	return FormResult{
		Success:       true,
		Message:       "Thank you for your message! We will contact you shortly.",
		SubmissionID:  submissionID,
		EmailSent:     emailSent,
		AutoReplySent: autoReplySent,
		Timestamp:     s.now().Format(time.RFC3339),
	}
}

// notifyAdmin mails the submission to the configured admin address.
func (s *ContactService) notifyAdmin(form ContactForm) bool {
	if !s.sendEmail {
		return false
	}

	subject := fmt.Sprintf("New Contact Form Submission: %s", orDefault(form.Name, "Unknown"))
	body := fmt.Sprintf(`NEW CONTACT FORM SUBMISSION
===========================

Name: %s
Email: %s
Phone: %s
Company: %s
Service Interest: %s

Message:
%s

---
Sent from the website contact form
Timestamp: %s
`,
		orDefault(form.Name, "Not provided"),
		orDefault(form.Email, "Not provided"),
		orDefault(form.Phone, "Not provided"),
		orDefault(form.Company, "Not provided"),
		orDefault(form.Service, "Not specified"),
		orDefault(form.Message, "Not provided"),
		s.now().Format("2006-01-02 15:04:05"))

	if err := s.mailer.Send(s.adminEmail, subject, body); err != nil {
		log.Printf("ERROR: Failed to send notification mail: %v", err)
		return false
	}
	log.Printf("Notification mail sent to %s", s.adminEmail)
	return true
}

// sendAutoReply acknowledges the submission to the sender.
func (s *ContactService) sendAutoReply(form ContactForm) bool {
	if !s.sendEmail || form.Email == "" {
		return false
	}

	subject := "Thank you for contacting Western Heights Inc."
	body := fmt.Sprintf(`Dear %s,

Thank you for contacting Western Heights Inc. We have received your inquiry
and our team will review it shortly.

Service Interest: %s
Submitted: %s

What happens next?
 1. Our team will review your inquiry within 24 hours
 2. We'll contact you using the provided contact information
 3. We'll schedule a consultation to discuss your specific needs

This is an automated response. Please do not reply to this email.
`,
		orDefault(form.Name, "Valued Customer"),
		orDefault(form.Service, "General Inquiry"),
		s.now().Format("January 2, 2006 at 15:04"))

	if err := s.mailer.Send(form.Email, subject, body); err != nil {
		log.Printf("ERROR: Failed to send auto-reply: %v", err)
		return false
	}
	log.Printf("Auto-reply sent to %s", form.Email)
	return true
}

// ListSubmissions reads back the newest stored submissions, most recent first.
func (s *ContactService) ListSubmissions(limit int) ([]Submission, error) {
	if limit <= 0 {
		limit = 50
	}

	entries, err := os.ReadDir(s.submissionsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []Submission{}, nil
		}
		return nil, fmt.Errorf("failed to read submissions directory: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".json") {
			names = append(names, entry.Name())
		}
	}
	// File names embed the submission timestamp, so reverse-lexical order is
	// newest first.
	sort.Sort(sort.Reverse(sort.StringSlice(names)))

	submissions := []Submission{}
	for _, name := range names {
		if len(submissions) >= limit {
			break
		}
		raw, err := os.ReadFile(filepath.Join(s.submissionsDir, name))
		if err != nil {
			log.Printf("WARNING: Could not read submission %s: %v", name, err)
			continue
		}
		var sub Submission
		if err := json.Unmarshal(raw, &sub); err != nil {
			log.Printf("WARNING: Could not parse submission %s: %v", name, err)
			continue
		}
		submissions = append(submissions, sub)
	}
	return submissions, nil
}

func orDefault(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
