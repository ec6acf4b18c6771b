package shortlinks

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"affiliate-link-resolver/internal/app/shortlinks/dao"
	"affiliate-link-resolver/internal/platform"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

var (
	ErrNotFound  = dao.ErrNotFound
	ErrCodeTaken = dao.ErrCodeTaken
	ErrExpired   = errors.New("short link expired")
	ErrDisabled  = errors.New("shortener disabled")
)

// InvalidInputError carries a client-facing message for a rejected request.
type InvalidInputError struct {
	Msg string
}

func (e *InvalidInputError) Error() string { return e.Msg }

const maxExpiryDays = 365

type store interface {
	Create(ctx context.Context, in dao.CreateInput, encode func(id int64) (string, error)) (dao.Link, error)
	GetByCode(ctx context.Context, code string) (dao.Link, error)
	IncrementClicks(ctx context.Context, id int64) error
	Codes(ctx context.Context, fn func(code string)) error
}

type ShortenInput struct {
	URL         string `validate:"required,url"`
	UserID      string `validate:"required"`
	CustomCode  string
	ExpiresDays int `validate:"gte=0,lte=365"`
}

type Service struct {
	store       store
	codec       *Codec
	bloom       *Bloom
	warmed      atomic.Bool
	defaultDays int
	logger      *zap.SugaredLogger
	validator   *validator.Validate
	now         func() time.Time
}

// NewService returns a Service; a nil store yields ErrDisabled from every call.
func NewService(st store, codec *Codec, bloom *Bloom, defaultDays int, logger *zap.SugaredLogger) *Service {
	if defaultDays <= 0 || defaultDays > maxExpiryDays {
		defaultDays = 30
	}
	return &Service{
		store:       st,
		codec:       codec,
		bloom:       bloom,
		defaultDays: defaultDays,
		logger:      logger,
		validator:   validator.New(),
		now:         time.Now,
	}
}

func (s *Service) Enabled() bool {
	return s != nil && s.store != nil
}

// Warm loads every issued code into the bloom filter. Until it returns, lookups
// skip the filter.
func (s *Service) Warm(ctx context.Context) error {
	if !s.Enabled() {
		return nil
	}
	if err := s.store.Codes(ctx, s.bloom.Add); err != nil {
		return err
	}
	s.warmed.Store(true)
	s.logger.Infow("shortlinks_bloom_warmed", "approx_codes", s.bloom.Count())
	return nil
}

func (s *Service) Shorten(ctx context.Context, in ShortenInput) (dao.Link, error) {
	if !s.Enabled() {
		return dao.Link{}, ErrDisabled
	}

	in.URL = strings.TrimSpace(in.URL)
	in.UserID = strings.TrimSpace(in.UserID)
	in.CustomCode = strings.TrimSpace(in.CustomCode)

	if err := s.validator.Struct(in); err != nil {
		return dao.Link{}, &InvalidInputError{Msg: validationMessage(err)}
	}
	if u, err := url.Parse(in.URL); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return dao.Link{}, &InvalidInputError{Msg: "url must be http or https"}
	}
	if in.CustomCode != "" && !validCustomCode(in.CustomCode) {
		return dao.Link{}, &InvalidInputError{Msg: "custom_code must be 4-32 characters of letters, digits, _ or -"}
	}

	days := in.ExpiresDays
	if days == 0 {
		days = s.defaultDays
	}
	now := s.now().UTC()

	link, err := s.store.Create(ctx, dao.CreateInput{
		OriginalURL: in.URL,
		Marketplace: platform.DetectMarketplace(in.URL),
		UserID:      in.UserID,
		CustomCode:  in.CustomCode,
		CreatedAt:   now,
		ExpiresAt:   now.AddDate(0, 0, days),
	}, s.codec.Encode)
	if err != nil {
		return dao.Link{}, err
	}

	s.bloom.Add(link.Code)
	s.logger.Infow("short_link_created",
		"code", link.Code,
		"marketplace", link.Marketplace,
		"user_id", link.UserID,
		"custom", in.CustomCode != "",
	)
	return link, nil
}

func (s *Service) Stats(ctx context.Context, code string) (dao.Link, error) {
	if !s.Enabled() {
		return dao.Link{}, ErrDisabled
	}
	if s.warmed.Load() && !s.bloom.MightExist(code) {
		return dao.Link{}, ErrNotFound
	}
	return s.store.GetByCode(ctx, code)
}

// Visit returns the link behind code and counts the click.
func (s *Service) Visit(ctx context.Context, code string) (dao.Link, error) {
	link, err := s.Stats(ctx, code)
	if err != nil {
		return dao.Link{}, err
	}
	if !link.IsActive || !s.now().Before(link.ExpiresAt) {
		return dao.Link{}, ErrExpired
	}
	if err := s.store.IncrementClicks(ctx, link.ID); err != nil {
		// The redirect still works; the counter is best effort.
		s.logger.Warnw("short_link_click_failed", "code", code, "err", err)
	} else {
		link.Clicks++
	}
	return link, nil
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err.Error()
	}
	fe := verrs[0]
	switch fe.Field() {
	case "URL":
		if fe.Tag() == "required" {
			return "url is required"
		}
		return "url is invalid"
	case "UserID":
		return "user_id is required"
	case "ExpiresDays":
		return fmt.Sprintf("expires_days must be between 1 and %d", maxExpiryDays)
	}
	return err.Error()
}
