package testutil

import "testing"

// Given, When and Then name subtests after the scenario step they cover, so
// a failure reads like "TestAdminRoutes/When_an_admin_deletes_a_user".
// Steps nest: a Then inside a When reports as a child of it.
func Given(t *testing.T, desc string, fn func(t *testing.T)) {
	t.Helper()
	step(t, "Given", desc, fn)
}

func When(t *testing.T, desc string, fn func(t *testing.T)) {
	t.Helper()
	step(t, "When", desc, fn)
}

func Then(t *testing.T, desc string, fn func(t *testing.T)) {
	t.Helper()
	step(t, "Then", desc, fn)
}

// step stops the enclosing scenario when a step fails, since later steps
// depend on the state it set up.
func step(t *testing.T, keyword, desc string, fn func(t *testing.T)) {
	t.Helper()
	if !t.Run(keyword+" "+desc, fn) {
		t.FailNow()
	}
}
