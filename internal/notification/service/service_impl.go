package service

import (
	"context"
	"fmt"
	"html/template"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/tabshare/tabshare/internal/clock"
	"github.com/tabshare/tabshare/internal/config"
	notifdomain "github.com/tabshare/tabshare/internal/notification/domain"
	"github.com/tabshare/tabshare/internal/providers/email"
	userdomain "github.com/tabshare/tabshare/internal/user/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var digestTemplate = template.Must(template.New("digest").Parse(`<html><body>
<p>Hi {{.Name}}, here is what happened while you were away:</p>
<ul>
{{- range .Entries}}
<li><strong>{{.Subject}}</strong><br/>{{.Body}}</li>
{{- end}}
</ul>
</body></html>`))

type digestData struct {
	Name    string
	Entries []*notifdomain.Notification
}

type Service struct {
	db     *gorm.DB
	log    *zap.Logger
	clock  clock.Clock
	repo   notifdomain.Repository
	users  userdomain.Repository
	mailer email.Provider
	digest *config.DigestConfigHolder
}

type ServiceParam struct {
	fx.In

	DB     *gorm.DB
	Log    *zap.Logger
	Clock  clock.Clock
	Repo   notifdomain.Repository
	Users  userdomain.Repository
	Mailer email.Provider
	Digest *config.DigestConfigHolder
}

func NewService(p ServiceParam) notifdomain.Service {
	return &Service{
		db:     p.DB,
		log:    p.Log.Named("notification.service"),
		clock:  p.Clock,
		repo:   p.Repo,
		users:  p.Users,
		mailer: p.Mailer,
		digest: p.Digest,
	}
}

func (s *Service) Enqueue(ctx context.Context, n *notifdomain.Notification) error {
	if n.CreatedAt.IsZero() {
		n.CreatedAt = s.clock.Now()
	}
	return s.repo.Insert(ctx, s.db, n)
}

// DrainDigests bundles pending notifications per user into one email
// each and stamps them digested. Returns how many digests were sent. A
// failed send leaves that user's rows pending for the next pass.
func (s *Service) DrainDigests(ctx context.Context) (int, error) {
	cfg := s.digest.Get()
	cutoff := s.clock.Now().Add(-cfg.MinAge)

	pending, err := s.repo.FindPending(ctx, s.db, cutoff, cfg.MaxBatch*cfg.MaxRecipients)
	if err != nil {
		return 0, err
	}
	if len(pending) == 0 {
		return 0, nil
	}

	byUser := make(map[snowflake.ID][]*notifdomain.Notification)
	var order []snowflake.ID
	for _, n := range pending {
		if _, ok := byUser[n.UserID]; !ok {
			order = append(order, n.UserID)
		}
		if len(byUser[n.UserID]) < cfg.MaxBatch {
			byUser[n.UserID] = append(byUser[n.UserID], n)
		}
	}
	if len(order) > cfg.MaxRecipients {
		order = order[:cfg.MaxRecipients]
	}

	sent := 0
	for _, userID := range order {
		entries := byUser[userID]
		user, err := s.users.FindByID(ctx, s.db, userID)
		if err != nil {
			return sent, err
		}
		if user == nil {
			// user deleted since enqueue; retire the rows silently
			if err := s.markDigested(ctx, entries); err != nil {
				return sent, err
			}
			continue
		}

		var body strings.Builder
		if err := digestTemplate.Execute(&body, digestData{Name: user.Name, Entries: entries}); err != nil {
			return sent, err
		}
		msg := email.Message{
			To:       user.Email,
			Subject:  fmt.Sprintf("Tabshare digest: %d update(s)", len(entries)),
			HTMLBody: body.String(),
		}
		if err := s.mailer.Send(ctx, msg); err != nil {
			s.log.Warn("digest send failed, rows stay pending",
				zap.String("user_id", userID.String()),
				zap.Error(err),
			)
			continue
		}
		if err := s.markDigested(ctx, entries); err != nil {
			return sent, err
		}
		sent++
	}

	s.log.Info("digest pass complete",
		zap.Int("pending", len(pending)),
		zap.Int("sent", sent),
	)
	return sent, nil
}

func (s *Service) markDigested(ctx context.Context, entries []*notifdomain.Notification) error {
	ids := make([]snowflake.ID, len(entries))
	for i, n := range entries {
		ids[i] = n.ID
	}
	return s.repo.MarkDigested(ctx, s.db, ids, s.clock.Now())
}
