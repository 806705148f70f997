package common

import (
	"errors"
	"log"
	"strings"
	"summit/src/models"
)

// IdentityResolver finds or creates the local user record for a stable
// external auth id. Uniqueness is the only rule it owns.
type IdentityResolver struct {
	store Store
}

func NewIdentityResolver(store Store) *IdentityResolver {
	return &IdentityResolver{store: store}
}

// Resolve returns the user for the given external id, attaching the id to
// a pre-existing email-only record when needed. A lost create race is
// settled by re-fetching the winner; the constraint error never reaches
// the caller.
func (r *IdentityResolver) Resolve(externalID, email, name string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	if externalID != "" {
		user, err := r.store.FindUserByUID(externalID)
		if err == nil {
			return user, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, err
		}
	}

	if email != "" {
		user, err := r.store.FindUserByEmail(email)
		if err == nil {
			if externalID != "" && user.UID == "" {
				if err := r.store.AttachUID(user.ID, externalID); err != nil {
					log.Printf("Error attaching external id to user [%d]: %s\n", user.ID, err.Error())
					return nil, err
				}
				user.UID = externalID
			}
			return user, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, err
		}
	}

	user := &models.User{
		Name:  name,
		Email: email,
		UID:   externalID,
	}
	if err := r.store.CreateUser(user); err != nil {
		if isUniqueViolation(err) {
			return r.refetch(externalID, email)
		}
		return nil, err
	}
	return user, nil
}

func (r *IdentityResolver) refetch(externalID, email string) (*models.User, error) {
	if externalID != "" {
		if user, err := r.store.FindUserByUID(externalID); err == nil {
			return user, nil
		}
	}
	return r.store.FindUserByEmail(email)
}
