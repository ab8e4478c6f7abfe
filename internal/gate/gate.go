// Package gate decides, per navigation attempt, whether the user may reach
// a view or must be sent elsewhere first.
//
// The decision is a pure function of the target route's flags, whether the
// user is signed in and whether onboarding is complete. Gate.Decide adds the
// one side effect allowed here: lazy hydration of the credential store.
package gate

import (
	"context"
	"fmt"
	"net/url"

	"go.uber.org/zap"

	"brickvault-api/internal/model"
	"brickvault-api/internal/onboarding"
	"brickvault-api/pkg/logger"
)

// Route is a navigable view and its static requirements.
type Route struct {
	Name               string
	Path               string
	RequiresAuth       bool
	RequiresOnboarding bool
}

// Route names of the default table.
const (
	RouteHome    = "home"
	RouteSets    = "sets"
	RouteProfile = "profile"
)

// Outcome is the result kind of a gate decision.
type Outcome int

const (
	Allow Outcome = iota
	RedirectLanding
	RedirectProfile
)

func (o Outcome) String() string {
	switch o {
	case Allow:
		return "allow"
	case RedirectLanding:
		return "redirect_landing"
	case RedirectProfile:
		return "redirect_profile"
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// Decision is what the gate answered for one navigation attempt.
type Decision struct {
	Outcome Outcome
	// Target is the route that was asked for.
	Target Route
	// Redirect is the route to go to instead; zero when allowed.
	Redirect Route
	// Intended is the original full path, carried on profile redirects.
	Intended string
}

// Allowed reports whether navigation may proceed.
func (d Decision) Allowed() bool { return d.Outcome == Allow }

// Location renders the redirect URL. Empty when allowed.
func (d Decision) Location() string {
	switch d.Outcome {
	case RedirectLanding:
		return d.Redirect.Path
	case RedirectProfile:
		q := url.Values{}
		q.Set("onboarding", "true")
		if d.Intended != "" {
			q.Set("intended", d.Intended)
		}
		return d.Redirect.Path + "?" + q.Encode()
	}
	return ""
}

// Table is a set of routes plus the names of the landing and
// profile-completion routes.
type Table struct {
	Routes  []Route
	Landing string
	Profile string
}

// DefaultTable is the application's route table.
var DefaultTable = Table{
	Routes: []Route{
		{Name: RouteHome, Path: "/"},
		{Name: RouteSets, Path: "/sets", RequiresAuth: true, RequiresOnboarding: true},
		{Name: RouteProfile, Path: "/profile", RequiresAuth: true},
	},
	Landing: RouteHome,
	Profile: RouteProfile,
}

// Lookup finds a route by name.
func (t Table) Lookup(name string) (Route, bool) {
	for _, r := range t.Routes {
		if r.Name == name {
			return r, true
		}
	}
	return Route{}, false
}

func (t Table) route(name, fallbackPath string) Route {
	if r, ok := t.Lookup(name); ok {
		return r
	}
	return Route{Name: name, Path: fallbackPath}
}

// Evaluate applies the transition rules in order:
//  1. a target that does not require auth is allowed;
//  2. an unauthenticated user is sent to the landing route;
//  3. an incomplete profile on a route requiring onboarding is sent to the
//     profile route with the intended path, unless the target is the
//     profile route itself;
//  4. everything else is allowed.
func (t Table) Evaluate(target Route, fullPath string, authenticated, onboarded bool) Decision {
	d := Decision{Outcome: Allow, Target: target}

	if !target.RequiresAuth {
		return d
	}
	if !authenticated {
		d.Outcome = RedirectLanding
		d.Redirect = t.route(t.Landing, "/")
		return d
	}
	if target.RequiresOnboarding && !onboarded && target.Name != t.Profile {
		d.Outcome = RedirectProfile
		d.Redirect = t.route(t.Profile, "/profile")
		d.Intended = fullPath
	}
	return d
}

// Evaluate applies DefaultTable's transition rules.
func Evaluate(target Route, fullPath string, authenticated, onboarded bool) Decision {
	return DefaultTable.Evaluate(target, fullPath, authenticated, onboarded)
}

// Credentials is the read side of the credential store the gate needs.
type Credentials interface {
	EnsureHydrated(ctx context.Context)
	IsAuthenticated() bool
	Identity() *model.Identity
}

// Gate evaluates navigation attempts against a route table.
type Gate struct {
	table Table
	log   *zap.SugaredLogger
}

// New creates a gate over table.
func New(table Table, l *zap.SugaredLogger) *Gate {
	return &Gate{table: table, log: logger.OrNop(l).Named("gate")}
}

// Table returns the route table.
func (g *Gate) Table() Table { return g.table }

// Decide hydrates creds if needed and evaluates the navigation attempt.
// It never modifies the identity.
func (g *Gate) Decide(ctx context.Context, target Route, fullPath string, creds Credentials) Decision {
	creds.EnsureHydrated(ctx)

	authenticated := creds.IsAuthenticated()
	onboarded := authenticated && onboarding.IsComplete(creds.Identity())

	d := g.table.Evaluate(target, fullPath, authenticated, onboarded)
	if !d.Allowed() {
		g.log.Debugw("navigation redirected",
			"route", target.Name,
			"path", fullPath,
			"outcome", d.Outcome.String(),
			"location", d.Location(),
		)
	}
	return d
}
