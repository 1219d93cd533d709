package email

import (
	"context"
	"fmt"
	"net/smtp"

	"go.uber.org/zap"
)

// SMTPNotifier sends the failure email for a job. The clientId doubles as the
// recipient address; resolving it to a real mailbox belongs to the owning
// service.
type SMTPNotifier struct {
	host   string
	port   int
	from   string
	logger *zap.Logger
}

func NewSMTPNotifier(host string, port int, from string, logger *zap.Logger) *SMTPNotifier {
	return &SMTPNotifier{host: host, port: port, from: from, logger: logger}
}

func (n *SMTPNotifier) NotifyFailure(_ context.Context, clientID, videoID, filename, errorMsg string) error {
	addr := fmt.Sprintf("%s:%d", n.host, n.port)

	subject := "We could not process your video"
	body := fmt.Sprintf(
		"Hello,\r\n\r\n"+
			"Unfortunately your video could not be processed.\r\n\r\n"+
			"Video details:\r\n"+
			"- File name: %s\r\n"+
			"- Video ID: %s\r\n\r\n"+
			"Please contact our support team if you need further assistance.\r\n\r\n"+
			"-- Video Processing Team",
		filename, videoID,
	)

	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s",
		n.from, clientID, subject, body,
	)

	if err := smtp.SendMail(addr, nil, n.from, []string{clientID}, []byte(msg)); err != nil {
		n.logger.Error("failed to send failure notification email",
			zap.String("to", clientID),
			zap.String("video_id", videoID),
			zap.Error(err),
		)
		return fmt.Errorf("send email: %w", err)
	}

	n.logger.Info("failure notification email sent",
		zap.String("to", clientID),
		zap.String("video_id", videoID),
	)
	return nil
}
