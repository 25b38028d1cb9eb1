package notification

import (
	"bytes"
	"context"
	"text/template"
	"time"

	"gopkg.in/gomail.v2"

	"github.com/naiba/uptime/model"
)

type SMTPConfig struct {
	Host string
	Port int
	User string
	Pass string
}

type mailDialer interface {
	DialAndSend(m ...*gomail.Message) error
}

var emailTemplate = template.Must(template.New("alert").Funcs(template.FuncMap{
	"time":  formatTime,
	"stamp": func(t time.Time) string { return formatTime(&t) },
	"na":    orNA,
}).Parse(`Monitor: {{.Name}}
URL: {{.URL}}
Status: {{.Status}}
Resolved: {{if .Resolved}}Yes{{else}}No{{end}}
Resolution type: {{printf "%s" .ResolutionType | na}}
Resolved by: {{na .ResolvedBy}}
Resolution note: {{na .ResolutionNote}}
Checked at: {{time .CheckTime}}
Alert time: {{stamp .AlertTime}}
`))

type EmailSender struct {
	from   string
	dialer mailDialer
}

// NewEmailSender 465 端口时 gomail 自动使用隐式 TLS
func NewEmailSender(conf SMTPConfig) *EmailSender {
	return &EmailSender{
		from:   conf.User,
		dialer: gomail.NewDialer(conf.Host, conf.Port, conf.User, conf.Pass),
	}
}

func renderEmail(a model.Alert) (string, error) {
	var buf bytes.Buffer
	if err := emailTemplate.Execute(&buf, a); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (s *EmailSender) Send(ctx context.Context, ch *model.NotificationChannel, alert model.Alert) error {
	if ch.Config.EmailAddress == "" {
		return ErrMissingTarget
	}
	body, err := renderEmail(alert)
	if err != nil {
		return err
	}
	m := gomail.NewMessage()
	m.SetAddressHeader("From", s.from, "Checkmate")
	m.SetHeader("To", ch.Config.EmailAddress)
	m.SetHeader("Subject", "Monitor Alert")
	m.SetBody("text/plain", body)

	// gomail 不支持 context，只在发送前检查一次
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.dialer.DialAndSend(m)
}
