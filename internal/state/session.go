package state

import (
	"context"

	"github.com/UrsacheMihai/Productivity-App-V1/internal/model"
)

func (s *Store) SignIn(ctx context.Context, email, password string) error {
	return s.authenticate(ctx, "sign_in", "Signed in successfully", "Failed to sign in",
		func(ctx context.Context) (*model.Session, error) {
			return s.identity.SignIn(ctx, email, password)
		})
}

func (s *Store) SignUp(ctx context.Context, email, password string) error {
	return s.authenticate(ctx, "sign_up", "Account created successfully", "Failed to create account",
		func(ctx context.Context) (*model.Session, error) {
			return s.identity.SignUp(ctx, email, password)
		})
}

func (s *Store) authenticate(ctx context.Context, action, okMsg, failMsg string, call func(context.Context) (*model.Session, error)) error {
	if err := s.begin(); err != nil {
		return err
	}
	defer s.release()

	sess, err := call(ctx)
	if err != nil {
		s.recordError(err)
		s.notifier.Notify(Notice{Level: LevelError, Entity: "session", Action: action, Message: failMsg})
		return remoteErr("session."+action, err)
	}

	s.setSession(sess)
	s.clearError()
	s.notifier.Notify(Notice{Level: LevelSuccess, Entity: "session", Action: action, Message: okMsg})
	return nil
}

// SignOut ends the session with the provider. The session and all four
// collections are cleared whether or not the provider call succeeds.
func (s *Store) SignOut(ctx context.Context) error {
	if err := s.begin(); err != nil {
		return err
	}
	defer s.release()

	err := s.identity.SignOut(ctx)
	s.setSession(nil)
	if err != nil {
		s.recordError(err)
		s.notifier.Notify(Notice{Level: LevelError, Entity: "session", Action: "sign_out", Message: "Failed to sign out"})
		return remoteErr("session.sign_out", err)
	}

	s.clearError()
	s.notifier.Notify(Notice{Level: LevelSuccess, Entity: "session", Action: "sign_out", Message: "Signed out successfully"})
	return nil
}

// Session returns a copy of the current session, or nil.
func (s *Store) Session() *model.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return nil
	}
	c := *s.session
	return &c
}
