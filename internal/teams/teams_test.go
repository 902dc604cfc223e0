package teams

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func testConfig() Config {
	return Config{
		"backend": {
			Projects: []string{"api", "shared"},
			Users: []User{
				{GithubUsername: "alice", Email: "alice@example.com"},
				{GithubUsername: "carol", Email: "carol@example.com"},
			},
		},
		"frontend": {
			Projects: []string{"web", "shared"},
			Users: []User{
				{GithubUsername: "bob", Email: "bob@example.com"},
				{GithubUsername: "carol", Email: "carol@example.com"},
			},
		},
		"data": {
			Projects: []string{"etl"},
			Users: []User{
				{Email: "dave@example.com"},
			},
		},
	}
}

func TestResolver_Resolve(t *testing.T) {
	r := NewResolver(testConfig())

	tests := []struct {
		name   string
		ctx    Context
		team   string
		exists bool
	}{
		{name: "empty context", ctx: Context{}},
		{name: "unknown project and user", ctx: Context{ProjectId: "nope", GithubUsername: "nobody"}},
		{name: "single project team", ctx: Context{ProjectId: "api"}, team: "backend", exists: true},
		{name: "single user team", ctx: Context{GithubUsername: "bob"}, team: "frontend", exists: true},
		{name: "email fallback", ctx: Context{Email: "dave@example.com"}, team: "data", exists: true},
		{name: "unknown github username falls back to email", ctx: Context{GithubUsername: "ghost", Email: "alice@example.com"}, team: "backend", exists: true},
		{name: "shared project is ambiguous", ctx: Context{ProjectId: "shared"}},
		{name: "user in two teams is ambiguous", ctx: Context{GithubUsername: "carol"}},
		{name: "intersection resolves shared project", ctx: Context{ProjectId: "shared", GithubUsername: "bob"}, team: "frontend", exists: true},
		{name: "intersection resolves multi-team user", ctx: Context{ProjectId: "api", GithubUsername: "carol"}, team: "backend", exists: true},
		{name: "both ambiguous with two common teams", ctx: Context{ProjectId: "shared", GithubUsername: "carol"}},
		{name: "conflicting single candidates", ctx: Context{ProjectId: "api", GithubUsername: "bob"}},
		{name: "single project team wins over multi-team user", ctx: Context{ProjectId: "etl", GithubUsername: "carol"}, team: "data", exists: true},
		{name: "single user team wins over shared project", ctx: Context{ProjectId: "shared", Email: "dave@example.com"}, team: "data", exists: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			team, ok := r.Resolve(tt.ctx)
			assert.Equal(t, tt.exists, ok)
			assert.Equal(t, tt.team, team)
		})
	}
}

func TestResolver_Resolve_SingleCandidateBeatsAmbiguousLookup(t *testing.T) {
	r := NewResolver(Config{
		"a": {Projects: []string{"api"}},
		"b": {Users: []User{{GithubUsername: "u"}}},
		"c": {Users: []User{{GithubUsername: "u"}}},
	})

	team, ok := r.Resolve(Context{ProjectId: "api", GithubUsername: "u"})
	assert.True(t, ok)
	assert.Equal(t, "a", team)
}

func TestResolver_TeamId_Fallback(t *testing.T) {
	r := NewResolver(testConfig())

	assert.Equal(t, "backend", r.TeamId(Context{ProjectId: "api"}, "unknown"))
	assert.Equal(t, "unknown", r.TeamId(Context{ProjectId: "shared"}, "unknown"))
}

func TestResolver_IsActorAllowed(t *testing.T) {
	r := NewResolver(testConfig())

	assert.True(t, r.IsActorAllowed("alice", ""))
	assert.True(t, r.IsActorAllowed("", "dave@example.com"))
	assert.True(t, r.IsActorAllowed("ghost", "bob@example.com"))
	assert.False(t, r.IsActorAllowed("ghost", ""))
	assert.False(t, r.IsActorAllowed("", ""))
}

func TestResolver_EmptyConfig(t *testing.T) {
	r := NewResolver(nil)

	_, ok := r.Resolve(Context{ProjectId: "api", GithubUsername: "alice"})
	assert.False(t, ok)
	assert.False(t, r.IsActorAllowed("alice", "alice@example.com"))
}

func TestHolder_StoreReplacesIndex(t *testing.T) {
	h := NewHolder(NewResolver(testConfig()))
	team, ok := h.Load().Resolve(Context{ProjectId: "api"})
	assert.True(t, ok)
	assert.Equal(t, "backend", team)

	h.Store(NewResolver(Config{"platform": {Projects: []string{"api"}}}))
	team, ok = h.Load().Resolve(Context{ProjectId: "api"})
	assert.True(t, ok)
	assert.Equal(t, "platform", team)

	h.Store(nil)
	_, ok = h.Load().Resolve(Context{ProjectId: "api"})
	assert.False(t, ok)
}
