package firebase

import (
	"context"
	"fmt"
	"time"

	fb "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"

	"github.com/civicweb/cms/internal/session"
)

// New builds an ID-token verifier from a service account key file.
func New(ctx context.Context, keyPath string) (*Firebase, error) {
	var opts []option.ClientOption
	if keyPath != "" {
		opts = append(opts, option.WithCredentialsFile(keyPath))
	}
	app, err := fb.NewApp(ctx, nil, opts...)
	if err != nil {
		return nil, fmt.Errorf("initialize firebase app: %w", err)
	}

	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("get auth client: %w", err)
	}

	return &Firebase{auth: client}, nil
}

type Firebase struct {
	auth *auth.Client
}

// VerifyIDToken checks a Firebase ID token and returns the session it
// grants. used by middleware
func (f *Firebase) VerifyIDToken(ctx context.Context, token string) (session.State, error) {
	t, err := f.auth.VerifyIDToken(ctx, token)
	if err != nil {
		return session.State{}, err
	}
	return session.State{
		UID:       t.UID,
		ExpiresAt: time.Unix(t.Expires, 0),
	}, nil
}
