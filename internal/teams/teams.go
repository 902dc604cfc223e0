package teams

import (
	"sync/atomic"
)

type User struct {
	Email          string `yaml:"email" json:"email"`
	GithubUsername string `yaml:"github_username" json:"github_username"`
	SlackMemberId  string `yaml:"slack_member_id" json:"slack_member_id"`
}

type Team struct {
	Id             string   `yaml:"id" json:"id"`
	GithubTeamName string   `yaml:"github_team_name" json:"github_team_name"`
	LinearTeamId   string   `yaml:"linear_team_id" json:"linear_team_id"`
	Projects       []string `yaml:"projects" json:"projects"`
	Users          []User   `yaml:"users" json:"users"`
}

// Config maps a team name to its projects and members.
type Config map[string]Team

// Context is what an event tells us about who/what triggered it.
type Context struct {
	ProjectId      string
	GithubUsername string
	Email          string
}

// Resolver is an immutable index over Config. Build a new one on reload.
type Resolver struct {
	teamsByProject        map[string][]string
	teamsByGithubUsername map[string][]string
	teamsByEmail          map[string][]string

	usersByGithubUsername map[string]User
	usersByEmail          map[string]User
}

func NewResolver(cfg Config) *Resolver {
	r := &Resolver{
		teamsByProject:        make(map[string][]string),
		teamsByGithubUsername: make(map[string][]string),
		teamsByEmail:          make(map[string][]string),
		usersByGithubUsername: make(map[string]User),
		usersByEmail:          make(map[string]User),
	}

	for name, team := range cfg {
		// Для событий без пользователя (деплои, инциденты)
		for _, project := range team.Projects {
			r.teamsByProject[project] = appendUnique(r.teamsByProject[project], name)
		}

		// GitHub и почтовые аккаунты (Linear)
		for _, user := range team.Users {
			if user.GithubUsername != "" {
				r.teamsByGithubUsername[user.GithubUsername] = appendUnique(r.teamsByGithubUsername[user.GithubUsername], name)
				r.usersByGithubUsername[user.GithubUsername] = user
			}
			if user.Email != "" {
				r.teamsByEmail[user.Email] = appendUnique(r.teamsByEmail[user.Email], name)
				r.usersByEmail[user.Email] = user
			}
		}
	}

	return r
}

// Resolve returns the single team the context can be attributed to.
// The project and identity lookups are done independently. A lookup with exactly
// one candidate wins over an ambiguous one; otherwise only the intersection counts,
// and anything but exactly one candidate is reported as unresolved.
func (r *Resolver) Resolve(ctx Context) (string, bool) {
	projectTeams := r.teamsByProject[ctx.ProjectId]
	identityTeams := r.identityTeams(ctx)

	switch {
	case len(projectTeams) == 0 && len(identityTeams) == 0:
		return "", false
	case len(identityTeams) == 0:
		return single(projectTeams)
	case len(projectTeams) == 0:
		return single(identityTeams)
	case len(projectTeams) == 1 && len(identityTeams) > 1:
		return projectTeams[0], true
	case len(identityTeams) == 1 && len(projectTeams) > 1:
		return identityTeams[0], true
	}

	// 1 на 1 или неоднозначность с обеих сторон
	return single(intersect(projectTeams, identityTeams))
}

// TeamId is Resolve with the unknown label as fallback.
func (r *Resolver) TeamId(ctx Context, unknown string) string {
	if team, ok := r.Resolve(ctx); ok {
		return team
	}
	return unknown
}

// IsActorAllowed reports whether the identity belongs to any configured team.
func (r *Resolver) IsActorAllowed(githubUsername, email string) bool {
	if githubUsername != "" {
		if _, ok := r.usersByGithubUsername[githubUsername]; ok {
			return true
		}
	}
	if email != "" {
		if _, ok := r.usersByEmail[email]; ok {
			return true
		}
	}
	return false
}

func (r *Resolver) identityTeams(ctx Context) []string {
	if ctx.GithubUsername != "" {
		if teams, ok := r.teamsByGithubUsername[ctx.GithubUsername]; ok {
			return teams
		}
	}
	if ctx.Email != "" {
		return r.teamsByEmail[ctx.Email]
	}
	return nil
}

func single(candidates []string) (string, bool) {
	if len(candidates) != 1 {
		return "", false
	}
	return candidates[0], true
}

func intersect(a, b []string) []string {
	set := make(map[string]struct{}, len(a))
	for _, v := range a {
		set[v] = struct{}{}
	}
	var out []string
	for _, v := range b {
		if _, ok := set[v]; ok {
			out = append(out, v)
			delete(set, v)
		}
	}
	return out
}

func appendUnique(list []string, v string) []string {
	for _, existing := range list {
		if existing == v {
			return list
		}
	}
	return append(list, v)
}

// Holder publishes the current Resolver; Store replaces it wholesale.
type Holder struct {
	current atomic.Pointer[Resolver]
}

func NewHolder(r *Resolver) *Holder {
	h := &Holder{}
	h.Store(r)
	return h
}

func (h *Holder) Load() *Resolver {
	return h.current.Load()
}

func (h *Holder) Store(r *Resolver) {
	if r == nil {
		r = NewResolver(nil)
	}
	h.current.Store(r)
}
