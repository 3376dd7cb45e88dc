package main

import (
	"time"

	"github.com/codeready-toolchain/dbscrub/pkg/generators"
	"github.com/codeready-toolchain/dbscrub/pkg/rules"
)

// buildRegistry declares the rule set this binary ships with. Deployments
// edit this file to match their schema; the engine packages are
// registry-agnostic and usable as a library with any rule set.
func buildRegistry() (*rules.Registry, error) {
	registry := rules.NewRegistry()

	declarations := []*rules.Sanitizer{
		rules.NewSanitizer("users").
			Name("user").
			Scrub("email", rules.FakeEmail(generators.EmailOptions{Prefix: "user"})).
			Scrub("first_name", rules.MatchLength(generators.Word)).
			Scrub("last_name", rules.MatchLength(generators.Word)).
			Scrub("phone", rules.FakePhone(10)).
			Scrub("encrypted_password", rules.FakePassword("", 0)).
			Keep("locale", "timezone"),

		rules.NewSanitizer("profiles").
			Name("profile").
			Scrub("bio", rules.MatchLength(generators.Paragraph)).
			Scrub("preferences", rules.FakeJSON(nil)).
			Keep("user_id", "visibility"),

		rules.NewSanitizer("sessions").
			Name("session").
			Truncate().
			VerifyDefault(),

		rules.NewSanitizer("audit_events").
			Name("audit-event").
			PruneOlderThan(90 * 24 * time.Hour).
			Scrub("actor_email", rules.FakeEmail(generators.EmailOptions{Prefix: "actor"})).
			Scrub("payload", rules.FakeJSON(nil)).
			Keep("action"),
	}

	for _, s := range declarations {
		if err := registry.Register(s); err != nil {
			return nil, err
		}
	}
	return registry, nil
}
