package cases

import (
	"context"
	"fmt"
	"log/slog"
)

// Notifier is told about assignment changes. Implementations must not block
// the mutation; delivery is best effort.
type Notifier interface {
	CaseAssigned(ctx context.Context, c *Case)
}

// EmailSource resolves a user id to a deliverable address.
type EmailSource interface {
	EmailByUserID(ctx context.Context, id int64) (string, error)
}

// MailEnqueuer pushes a mail job onto the queue.
type MailEnqueuer interface {
	EnqueueAssignmentMail(ctx context.Context, to, subject, body string) error
}

// AssignmentNotifier emails an assignee when a case lands on their queue. The
// message goes through the job queue so a slow relay never holds a request.
type AssignmentNotifier struct {
	emails EmailSource
	mail   MailEnqueuer
	logger *slog.Logger
}

// NewAssignmentNotifier builds an AssignmentNotifier.
func NewAssignmentNotifier(emails EmailSource, mail MailEnqueuer, logger *slog.Logger) *AssignmentNotifier {
	return &AssignmentNotifier{emails: emails, mail: mail, logger: logger}
}

// CaseAssigned enqueues the notification mail. Failures are logged and
// swallowed so they never surface into the mutation.
func (n *AssignmentNotifier) CaseAssigned(ctx context.Context, c *Case) {
	if c == nil || c.AssigneeID == nil {
		return
	}
	to, err := n.emails.EmailByUserID(ctx, *c.AssigneeID)
	if err != nil || to == "" {
		n.logger.Warn("resolve assignee email", slog.Int64("case_id", c.ID), slog.Any("error", err))
		return
	}
	subject := fmt.Sprintf("Nuevo caso asignado: %s", c.Title)
	body := fmt.Sprintf("Se te ha asignado el caso #%d (%s), prioridad %s.", c.ID, c.Title, c.Priority)
	if err := n.mail.EnqueueAssignmentMail(ctx, to, subject, body); err != nil {
		n.logger.Warn("enqueue assignment mail", slog.Int64("case_id", c.ID), slog.Any("error", err))
	}
}
