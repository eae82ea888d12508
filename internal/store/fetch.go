package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"parrillas/internal/auth"
	"parrillas/internal/backend"
)

// FetchAll reloads every table in parallel and replaces the item collection with the
// joined result. Any failed read aborts the whole load and leaves items untouched.
func (s *Store) FetchAll(ctx context.Context) error {
	start := time.Now()
	asOf := s.Revision()
	s.Dispatch(LoadStarted{})

	rows, err := s.readAll(ctx)
	s.metrics.ObserveFetch(time.Since(start))
	s.metrics.Operation("fetch_all", err)
	if err != nil {
		s.log.WithError(err).Error("fetch failed")
		s.Dispatch(LoadFailed{Err: err.Error()})
		return err
	}

	s.Dispatch(ItemsLoaded{
		Items:    Join(rows, s.now()),
		Clients:  rows.Clients,
		Statuses: rows.Statuses,
		Labels:   rows.Labels,
		Users:    rows.Users,
		AsOf:     asOf,
	})
	s.log.WithField("items", len(rows.Items)).Debug("fetched board")
	return nil
}

func (s *Store) readAll(ctx context.Context) (Rows, error) {
	var r Rows
	g, gctx := errgroup.WithContext(ctx)
	read := func(table string, fn func(context.Context) error) {
		g.Go(func() error {
			if err := fn(gctx); err != nil {
				return fmt.Errorf("load %s: %w", table, err)
			}
			return nil
		})
	}
	read(backend.TableItems, func(ctx context.Context) (err error) {
		r.Items, err = s.be.ListContentItems(ctx)
		return
	})
	read(backend.TableClients, func(ctx context.Context) (err error) {
		r.Clients, err = s.be.ListClients(ctx)
		return
	})
	read(backend.TableStatuses, func(ctx context.Context) (err error) {
		r.Statuses, err = s.be.ListStatuses(ctx)
		return
	})
	read(backend.TableLabels, func(ctx context.Context) (err error) {
		r.Labels, err = s.be.ListLabels(ctx)
		return
	})
	read(backend.TableUserProfiles, func(ctx context.Context) (err error) {
		r.Users, err = s.be.ListUsers(ctx)
		return
	})
	read(backend.TableAssignees, func(ctx context.Context) (err error) {
		r.Assignees, err = s.be.ListAssignees(ctx)
		return
	})
	read(backend.TableItemLabels, func(ctx context.Context) (err error) {
		r.ItemLabels, err = s.be.ListItemLabels(ctx)
		return
	})
	read(backend.TableImages, func(ctx context.Context) (err error) {
		r.Images, err = s.be.ListImages(ctx)
		return
	})
	read(backend.TableComments, func(ctx context.Context) (err error) {
		r.Comments, err = s.be.ListComments(ctx)
		return
	})
	if err := g.Wait(); err != nil {
		return Rows{}, err
	}
	return r, nil
}

// FetchCurrentUser loads the profile of the session user. Without a session the
// current user is cleared.
func (s *Store) FetchCurrentUser(ctx context.Context) error {
	a, err := auth.Require(s.session)
	if err != nil {
		s.Dispatch(CurrentUserLoaded{})
		return nil
	}
	u, err := s.be.GetUser(ctx, a.UserID)
	if errors.Is(err, backend.ErrNotFound) {
		s.log.WithField("user_id", a.UserID).Warn("session user has no profile")
		s.Dispatch(CurrentUserLoaded{})
		return err
	}
	if err != nil {
		return s.fail("fetch_current_user", err)
	}
	s.metrics.Operation("fetch_current_user", nil)
	s.Dispatch(CurrentUserLoaded{User: &u})
	return nil
}

func (s *Store) FetchClients(ctx context.Context) error {
	clients, err := s.be.ListClients(ctx)
	if err != nil {
		return s.fail("fetch_clients", err)
	}
	s.metrics.Operation("fetch_clients", nil)
	s.Dispatch(ClientsLoaded{Clients: clients})
	return nil
}
