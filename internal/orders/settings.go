package orders

import (
	"context"
	"fmt"
	"strconv"
)

// StoredSettings reads boolean switches straight from a SettingsStore.
type StoredSettings struct{ Store SettingsStore }

func (s StoredSettings) Bool(ctx context.Context, key string) (bool, error) {
	v, ok, err := s.Store.GetSetting(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("setting %s: %w", key, err)
	}
	return b, nil
}

func (s StoredSettings) SetBool(ctx context.Context, key string, v bool) error {
	return s.Store.PutSetting(ctx, key, strconv.FormatBool(v))
}
