package sessions

import (
	"context"
)

const flagTrue = "true"

// Service gives typed access to the persisted client state.
type Service struct {
	repo Repository
}

func NewService(r Repository) *Service { return &Service{repo: r} }

// Credential returns the stored remote API token and whether it was verified.
// An empty token means none is stored.
func (s *Service) Credential(ctx context.Context) (token string, verified bool, err error) {
	token, _, err = s.repo.Get(ctx, KeyCredential)
	if err != nil {
		return "", false, err
	}
	verified, err = s.flag(ctx, KeyCredentialVerified)
	return token, verified, err
}

// SaveVerifiedCredential stores a token that has just passed verification.
func (s *Service) SaveVerifiedCredential(ctx context.Context, token string) error {
	if err := s.repo.Set(ctx, KeyCredential, token); err != nil {
		return err
	}
	return s.repo.Set(ctx, KeyCredentialVerified, flagTrue)
}

// ClearCredential forgets the token and its verified flag.
func (s *Service) ClearCredential(ctx context.Context) error {
	if err := s.repo.Delete(ctx, KeyCredential); err != nil {
		return err
	}
	return s.repo.Delete(ctx, KeyCredentialVerified)
}

func (s *Service) AdminActive(ctx context.Context) (bool, error) {
	return s.flag(ctx, KeyAdminActive)
}

func (s *Service) SetAdminActive(ctx context.Context, active bool) error {
	if !active {
		return s.repo.Delete(ctx, KeyAdminActive)
	}
	return s.repo.Set(ctx, KeyAdminActive, flagTrue)
}

// ContainerID returns the remote container id, or "" when none was created.
func (s *Service) ContainerID(ctx context.Context) (string, error) {
	v, _, err := s.repo.Get(ctx, KeyContainerID)
	return v, err
}

func (s *Service) SetContainerID(ctx context.Context, id string) error {
	if id == "" {
		return s.repo.Delete(ctx, KeyContainerID)
	}
	return s.repo.Set(ctx, KeyContainerID, id)
}

// State collects every flag; the credential itself is never exposed.
func (s *Service) State(ctx context.Context) (State, error) {
	var st State
	token, verified, err := s.Credential(ctx)
	if err != nil {
		return st, err
	}
	st.HasCredential = token != ""
	st.CredentialVerified = verified
	if st.AdminActive, err = s.AdminActive(ctx); err != nil {
		return st, err
	}
	st.ContainerID, err = s.ContainerID(ctx)
	return st, err
}

func (s *Service) flag(ctx context.Context, key string) (bool, error) {
	v, ok, err := s.repo.Get(ctx, key)
	if err != nil {
		return false, err
	}
	return ok && v == flagTrue, nil
}
