// Package favorite manages a client's favorited project IDs.
package favorite

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"

	"github.com/zulandar/buildwatch/internal/kv"
	"github.com/zulandar/buildwatch/internal/project"
)

// Key is the client-state key holding the JSON array of project IDs.
const Key = "buildtracker_favorites"

// List returns the favorited project IDs in the order they were added.
func List(ctx context.Context, store kv.Store) ([]string, error) {
	raw, ok, err := store.Get(ctx, Key)
	if err != nil {
		return nil, fmt.Errorf("favorite: load: %w", err)
	}
	if !ok || raw == "" {
		return []string{}, nil
	}
	var ids []string
	if err := json.Unmarshal([]byte(raw), &ids); err != nil {
		return nil, fmt.Errorf("favorite: decode: %w", err)
	}
	return ids, nil
}

func save(ctx context.Context, store kv.Store, ids []string) error {
	data, err := json.Marshal(ids)
	if err != nil {
		return fmt.Errorf("favorite: encode: %w", err)
	}
	if err := store.Set(ctx, Key, string(data)); err != nil {
		return fmt.Errorf("favorite: save: %w", err)
	}
	return nil
}

// Toggle adds projectID if absent, removes it otherwise. It reports whether
// the project is a favorite afterwards.
func Toggle(ctx context.Context, store kv.Store, projectID string) (bool, error) {
	if projectID == "" {
		return false, fmt.Errorf("favorite: project id is required")
	}
	ids, err := List(ctx, store)
	if err != nil {
		return false, err
	}

	added := !slices.Contains(ids, projectID)
	if added {
		ids = append(ids, projectID)
	} else {
		ids = slices.DeleteFunc(ids, func(id string) bool { return id == projectID })
	}
	if err := save(ctx, store, ids); err != nil {
		return false, err
	}
	return added, nil
}

// IsFavorite reports whether projectID is favorited.
func IsFavorite(ctx context.Context, store kv.Store, projectID string) (bool, error) {
	ids, err := List(ctx, store)
	if err != nil {
		return false, err
	}
	return slices.Contains(ids, projectID), nil
}

// Select returns the favorited projects from projects, in projects order,
// with IsFollowing set.
func Select(projects []project.ConstructionProject, ids []string) []project.ConstructionProject {
	var out []project.ConstructionProject
	for _, p := range projects {
		if slices.Contains(ids, p.ID) {
			p.IsFollowing = true
			out = append(out, p)
		}
	}
	return out
}

// Mark sets IsFollowing on every project whose ID is in ids.
func Mark(projects []project.ConstructionProject, ids []string) {
	for i := range projects {
		projects[i].IsFollowing = slices.Contains(ids, projects[i].ID)
	}
}
