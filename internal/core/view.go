package core

import (
	"fmt"
	"strings"
)

// ViewKind enumerates the rendered views a mutation can make stale.
type ViewKind string

const (
	ViewDashboard ViewKind = "dashboard"
	ViewAccount   ViewKind = "account"
)

// View identifies one user's rendered view. AccountID is set only for
// ViewAccount.
type View struct {
	Kind      ViewKind `json:"kind"`
	UserID    string   `json:"user_id"`
	AccountID string   `json:"account_id,omitempty"`
}

func DashboardView(userID string) View {
	return View{Kind: ViewDashboard, UserID: userID}
}

func AccountView(userID, accountID string) View {
	return View{Kind: ViewAccount, UserID: userID, AccountID: accountID}
}

// Key is the cache key for the view.
func (v View) Key() string {
	if v.Kind == ViewAccount {
		return string(v.Kind) + ":" + v.UserID + ":" + v.AccountID
	}
	return string(v.Kind) + ":" + v.UserID
}

func (v View) String() string { return v.Key() }

// ParseView is the inverse of Key.
func ParseView(key string) (View, error) {
	parts := strings.Split(key, ":")
	switch {
	case len(parts) == 2 && parts[0] == string(ViewDashboard) && parts[1] != "":
		return DashboardView(parts[1]), nil
	case len(parts) == 3 && parts[0] == string(ViewAccount) && parts[1] != "" && parts[2] != "":
		return AccountView(parts[1], parts[2]), nil
	}
	return View{}, fmt.Errorf("%w: malformed view key %q", ErrInvalidInput, key)
}

// ViewsFor returns the dashboard view followed by one account view per id.
func ViewsFor(userID string, accountIDs ...string) []View {
	views := make([]View, 0, len(accountIDs)+1)
	views = append(views, DashboardView(userID))
	seen := make(map[string]struct{}, len(accountIDs))
	for _, id := range accountIDs {
		if _, ok := seen[id]; ok || id == "" {
			continue
		}
		seen[id] = struct{}{}
		views = append(views, AccountView(userID, id))
	}
	return views
}
