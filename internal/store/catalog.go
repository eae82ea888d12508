package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"parrillas/internal/backend"
	"parrillas/internal/model"
)

// CreateClient adds a client recorded as created by the session user.
func (s *Store) CreateClient(ctx context.Context, in model.NewClient) (model.Client, error) {
	a, err := s.actor()
	if err != nil {
		return model.Client{}, err
	}
	in.Name = strings.TrimSpace(in.Name)
	in.CreatedBy = &a.UserID
	if err := model.Validate(in); err != nil {
		return model.Client{}, s.fail("create_client", err)
	}
	c, err := s.be.InsertClient(ctx, in)
	if err != nil {
		return model.Client{}, s.fail("create_client", fmt.Errorf("create client: %w", err))
	}
	s.metrics.Operation("create_client", nil)
	s.Dispatch(ClientAdded{Client: c})
	return c, nil
}

// DeleteClient removes a client and reloads the client list. A client filter on
// the deleted client is cleared.
func (s *Store) DeleteClient(ctx context.Context, id string) error {
	if err := s.be.DeleteClient(ctx, id); err != nil {
		return s.fail("delete_client", fmt.Errorf("delete client: %w", err))
	}
	s.metrics.Operation("delete_client", nil)
	s.Dispatch(ClientRemoved{ID: id})
	return s.FetchClients(ctx)
}

// UpdateProfile changes the session user's own profile.
func (s *Store) UpdateProfile(ctx context.Context, patch model.ProfilePatch) error {
	a, err := s.actor()
	if err != nil {
		return err
	}
	if err := s.be.UpdateUser(ctx, a.UserID, patch); err != nil {
		return s.fail("update_profile", fmt.Errorf("update profile: %w", err))
	}
	s.metrics.Operation("update_profile", nil)
	s.Dispatch(ProfilePatched{UserID: a.UserID, Patch: patch})
	return nil
}

func (s *Store) UpdatePreferences(ctx context.Context, prefs model.Preferences) error {
	return s.UpdateProfile(ctx, model.ProfilePatch{Preferences: &prefs})
}

type driveSetting struct {
	URL string `json:"url"`
}

// DriveURL returns the agency's shared drive link, empty when unset.
func (s *Store) DriveURL(ctx context.Context) (string, error) {
	set, err := s.be.GetSetting(ctx, model.SettingDriveURL)
	if errors.Is(err, backend.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read drive url: %w", err)
	}
	var v driveSetting
	if err := json.Unmarshal(set.Value, &v); err != nil {
		return "", fmt.Errorf("decode drive url: %w", err)
	}
	return v.URL, nil
}

func (s *Store) SetDriveURL(ctx context.Context, url string) error {
	b, err := json.Marshal(driveSetting{URL: strings.TrimSpace(url)})
	if err != nil {
		return err
	}
	if err := s.be.UpsertSetting(ctx, model.SettingDriveURL, b); err != nil {
		return s.fail("set_drive_url", fmt.Errorf("save drive url: %w", err))
	}
	s.metrics.Operation("set_drive_url", nil)
	return nil
}
