package email

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/rs/zerolog/log"
	"gopkg.in/gomail.v2"
)

// Service sends the mails the lab produces.
type Service interface {
	SendInvoice(ctx context.Context, inv Invoice) error
}

// InvoiceLine is one ordered test.
type InvoiceLine struct {
	Name  string
	Price float64
}

// Invoice is the content of an invoice mail.
type Invoice struct {
	To              string
	PatientName     string
	LabName         string
	InvoiceNumber   string
	Lines           []InvoiceLine
	Subtotal        float64
	DiscountPercent float64
	DiscountAmount  float64
	TaxPercent      float64
	TaxAmount       float64
	Total           float64
}

type SMTPConfig struct {
	Host        string
	Port        int
	Username    string
	Password    string
	FromAddress string
	FromName    string
}

// Enabled reports whether enough is configured to dial a server.
func (c SMTPConfig) Enabled() bool {
	return c.Host != "" && c.FromAddress != ""
}

type SMTPService struct {
	config SMTPConfig
	dialer *gomail.Dialer
}

func NewSMTPService(config SMTPConfig) *SMTPService {
	return &SMTPService{
		config: config,
		dialer: gomail.NewDialer(config.Host, config.Port, config.Username, config.Password),
	}
}

// New returns a breaker-guarded SMTP sender when config is usable,
// otherwise one that only logs.
func New(config SMTPConfig) Service {
	if !config.Enabled() {
		return LogService{}
	}
	return NewGuardedService(NewSMTPService(config), defaultBreaker())
}

func (s *SMTPService) SendInvoice(ctx context.Context, inv Invoice) error {
	if inv.To == "" {
		return fmt.Errorf("invoice %s has no recipient", inv.InvoiceNumber)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	subject := fmt.Sprintf("Invoice %s from %s", inv.InvoiceNumber, inv.LabName)
	return s.send(inv.To, subject, invoiceHTML(inv), invoiceText(inv))
}

func (s *SMTPService) send(to, subject, htmlBody, plainBody string) error {
	m := gomail.NewMessage()
	m.SetAddressHeader("From", s.config.FromAddress, s.config.FromName)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", plainBody)
	m.AddAlternative("text/html", htmlBody)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

// LogService records invoices in the log instead of mailing them.
type LogService struct{}

func (LogService) SendInvoice(ctx context.Context, inv Invoice) error {
	log.Info().
		Str("invoice", inv.InvoiceNumber).
		Str("to", inv.To).
		Float64("total", inv.Total).
		Msg("SMTP not configured, invoice mail skipped")
	return nil
}

func invoiceText(inv Invoice) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Dear %s,\n\nThank you for visiting %s.\n\nInvoice %s\n\n", inv.PatientName, inv.LabName, inv.InvoiceNumber)
	for _, l := range inv.Lines {
		fmt.Fprintf(&b, "  %-40s %10.2f\n", l.Name, l.Price)
	}
	fmt.Fprintf(&b, "\n  %-40s %10.2f\n", "Subtotal", inv.Subtotal)
	fmt.Fprintf(&b, "  %-40s %10.2f\n", fmt.Sprintf("Discount (%.2f%%)", inv.DiscountPercent), -inv.DiscountAmount)
	fmt.Fprintf(&b, "  %-40s %10.2f\n", fmt.Sprintf("Tax (%.2f%%)", inv.TaxPercent), inv.TaxAmount)
	fmt.Fprintf(&b, "  %-40s %10.2f\n", "Total", inv.Total)
	return b.String()
}

func invoiceHTML(inv Invoice) string {
	var rows strings.Builder
	for _, l := range inv.Lines {
		fmt.Fprintf(&rows, "<tr><td>%s</td><td align=\"right\">%.2f</td></tr>", html.EscapeString(l.Name), l.Price)
	}
	return fmt.Sprintf(`
		<html>
		<body>
			<p>Dear %s,</p>
			<p>Thank you for visiting %s.</p>
			<h3>Invoice %s</h3>
			<table>
				%s
				<tr><td>Subtotal</td><td align="right">%.2f</td></tr>
				<tr><td>Discount (%.2f%%)</td><td align="right">-%.2f</td></tr>
				<tr><td>Tax (%.2f%%)</td><td align="right">%.2f</td></tr>
				<tr><td><b>Total</b></td><td align="right"><b>%.2f</b></td></tr>
			</table>
		</body>
		</html>
	`, html.EscapeString(inv.PatientName), html.EscapeString(inv.LabName), html.EscapeString(inv.InvoiceNumber), rows.String(),
		inv.Subtotal, inv.DiscountPercent, inv.DiscountAmount, inv.TaxPercent, inv.TaxAmount, inv.Total)
}
