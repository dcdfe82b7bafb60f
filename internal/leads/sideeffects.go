package leads

import (
	"context"
	"time"

	"voice-gateway/internal/payments"
	"voice-gateway/internal/pipeline"
)

type Notifier interface {
	NotifyLead(ctx context.Context, l Lead) error
}

type LinkCreator interface {
	CreatePaymentLink(ctx context.Context, req payments.LinkRequest) (string, error)
}

type Submitter interface {
	Submit(t pipeline.Task) bool
}

type PaymentOptions struct {
	Amount      float64
	Currency    string
	RedirectURL string
	Title       string
}

// Effects submits the notification and the payment link as separate tasks,
// so a failing provider never holds back the other one.
type Effects struct {
	repo     Repository
	notifier Notifier
	links    LinkCreator
	pay      PaymentOptions
	tasks    Submitter
	now      func() time.Time
}

func NewEffects(repo Repository, notifier Notifier, links LinkCreator, pay PaymentOptions, tasks Submitter) *Effects {
	return &Effects{repo: repo, notifier: notifier, links: links, pay: pay, tasks: tasks, now: time.Now}
}

func (e *Effects) Dispatch(l Lead) {
	attrs := map[string]string{"lead_id": l.ID}
	if l.CallID != "" {
		attrs["call_id"] = l.CallID
	}

	if e.notifier != nil {
		e.tasks.Submit(pipeline.Task{
			Name:  "lead_notification",
			Attrs: attrs,
			Run: func(ctx context.Context) error {
				if err := e.notifier.NotifyLead(ctx, l); err != nil {
					return err
				}
				return e.repo.MarkNotified(ctx, l.ID, e.now().UTC())
			},
		})
	}

	if e.links == nil || !l.IsQualified || l.Name == "" || l.Email == "" {
		return
	}
	e.tasks.Submit(pipeline.Task{
		Name:  "payment_link",
		Attrs: attrs,
		Run: func(ctx context.Context) error {
			link, err := e.links.CreatePaymentLink(ctx, payments.LinkRequest{
				Reference:   "lead-" + l.ID,
				Amount:      e.pay.Amount,
				Currency:    e.pay.Currency,
				RedirectURL: e.pay.RedirectURL,
				Name:        l.Name,
				Email:       l.Email,
				Phone:       l.Phone,
				Title:       e.pay.Title,
			})
			if err != nil {
				return err
			}
			return e.repo.SetPaymentLink(ctx, l.ID, link, e.now().UTC())
		},
	})
}
