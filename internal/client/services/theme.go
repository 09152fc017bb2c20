package services

import (
	"context"

	"github.com/samber/oops"

	"github.com/dmitrijs2005/gophauth/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/gophauth/internal/logging"
)

// ThemeKey holds the display theme preference.
const ThemeKey = "@theme"

type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// ThemeService persists the light/dark preference.
type ThemeService struct {
	repo metadata.Repository
	log  logging.Logger
}

func NewThemeService(repo metadata.Repository, log logging.Logger) *ThemeService {
	return &ThemeService{repo: repo, log: log}
}

// Load returns the stored theme. Anything unreadable or unknown reads as
// light.
func (s *ThemeService) Load(ctx context.Context) Theme {
	raw, err := s.repo.Get(ctx, ThemeKey)
	if err != nil {
		s.log.Warn(ctx, "load theme failed", "error", err)
		return ThemeLight
	}
	if Theme(raw) == ThemeDark {
		return ThemeDark
	}
	return ThemeLight
}

// Toggle flips the stored theme and returns the new one.
func (s *ThemeService) Toggle(ctx context.Context) (Theme, error) {
	prev := s.Load(ctx)
	next := ThemeDark
	if prev == ThemeDark {
		next = ThemeLight
	}

	if err := s.repo.Set(ctx, ThemeKey, []byte(next)); err != nil {
		return prev, oops.Code(CodeStorage).With("key", ThemeKey).Wrap(err)
	}
	return next, nil
}
