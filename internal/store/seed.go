package store

import (
	"context"
	"os"

	"github.com/goccy/go-json"
	"github.com/rotisserie/eris"

	"sumo-arena/internal/game"
)

// SeedProfiles loads a JSON array of profiles from path into ps.
// It returns how many profiles were written. An empty path is a no-op.
func SeedProfiles(ctx context.Context, ps ProfileStore, path string) (int, error) {
	if path == "" {
		return 0, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, eris.Wrapf(err, "read profiles %s", path)
	}

	var profiles []game.Profile
	if err := json.Unmarshal(raw, &profiles); err != nil {
		return 0, eris.Wrapf(err, "decode profiles %s", path)
	}

	for i, p := range profiles {
		if err := ps.Put(ctx, p); err != nil {
			return i, eris.Wrapf(err, "seed profile #%d", i)
		}
	}
	return len(profiles), nil
}
