package memory

import (
	"context"
	"sort"
	"time"

	"keeper.dev/keeper/internal/domain"
	apperrors "keeper.dev/keeper/internal/pkg/errors"
)

func (s *Store) CreatePost(_ context.Context, post domain.ScheduledPost) error {
	s.postsMu.Lock()
	defer s.postsMu.Unlock()
	if _, ok := s.posts[post.ID]; ok {
		return apperrors.ErrAlreadyExists
	}
	s.posts[post.ID] = post
	return nil
}

func (s *Store) GetPost(_ context.Context, id string) (domain.ScheduledPost, error) {
	s.postsMu.Lock()
	defer s.postsMu.Unlock()
	post, ok := s.posts[id]
	if !ok {
		return domain.ScheduledPost{}, apperrors.ErrNotFound
	}
	return post, nil
}

func (s *Store) ListDuePosts(_ context.Context, now time.Time) ([]domain.ScheduledPost, error) {
	s.postsMu.Lock()
	defer s.postsMu.Unlock()
	var out []domain.ScheduledPost
	for _, post := range s.posts {
		if post.Due(now) {
			out = append(out, post)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledAt.Before(out[j].ScheduledAt) })
	return out, nil
}

func (s *Store) MarkPostSent(_ context.Context, id string, at time.Time) (bool, error) {
	s.postsMu.Lock()
	defer s.postsMu.Unlock()
	post, ok := s.posts[id]
	if !ok {
		return false, apperrors.ErrNotFound
	}
	if post.Sent {
		return false, nil
	}
	sent := at
	post.Sent = true
	post.SentAt = &sent
	s.posts[id] = post
	return true, nil
}

func (s *Store) RecordPostFailure(_ context.Context, id, reason string, maxAttempts int) (domain.ScheduledPost, error) {
	s.postsMu.Lock()
	defer s.postsMu.Unlock()
	post, ok := s.posts[id]
	if !ok {
		return domain.ScheduledPost{}, apperrors.ErrNotFound
	}
	post.Attempts++
	post.LastError = reason
	if post.Attempts >= maxAttempts {
		post.Failed = true
	}
	s.posts[id] = post
	return post, nil
}
