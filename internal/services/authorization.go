package services

import (
	"context"
	"github.com/hrishi-sarma/codeforedtech/internal/apperrors"
	"github.com/hrishi-sarma/codeforedtech/internal/auth"
	log "github.com/sirupsen/logrus"
)

// requireAdmin re-reads the caller's role from the profile store. Route
// middleware performs the same check but is not relied upon.
func requireAdmin(ctx context.Context, admins adminChecker, identity *auth.Identity, operation string) error {
	if identity == nil {
		return apperrors.ErrUnauthenticated
	}
	isAdmin, err := admins.IsAdmin(ctx, identity.UserID)
	if err != nil {
		return err
	}
	if !isAdmin {
		log.Warnf("user %s attempted admin operation %s", identity.UserID, operation)
		return apperrors.New(apperrors.KindForbidden, "admin role required to %s", operation)
	}
	return nil
}
