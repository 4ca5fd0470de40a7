package metadata

import (
	"context"

	"github.com/dmitrijs2005/gophchat/internal/common"
)

const flagOn = "true"

// SkipAuthFlag persists the skip-auth testing override under common.SkipAuthKey.
type SkipAuthFlag struct {
	repo Repository
}

func NewSkipAuthFlag(repo Repository) *SkipAuthFlag {
	return &SkipAuthFlag{repo: repo}
}

func (f *SkipAuthFlag) Enabled(ctx context.Context) (bool, error) {
	v, err := f.repo.Get(ctx, common.SkipAuthKey)
	if err != nil {
		return false, err
	}
	return string(v) == flagOn, nil
}

func (f *SkipAuthFlag) Enable(ctx context.Context) error {
	return f.repo.Set(ctx, common.SkipAuthKey, []byte(flagOn))
}

func (f *SkipAuthFlag) Disable(ctx context.Context) error {
	return f.repo.Delete(ctx, common.SkipAuthKey)
}
