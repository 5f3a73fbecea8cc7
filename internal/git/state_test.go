package git

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thiagokokada/betarelease/internal/git/backend"
	"github.com/thiagokokada/betarelease/internal/testutil"
)

func TestSplitRemoteRef(t *testing.T) {
	tests := []struct {
		short        string
		remotes      []string
		remote, name string
		ok           bool
	}{
		{short: "origin/beta/0.0.1", remotes: []string{"origin"}, remote: "origin", name: "beta/0.0.1", ok: true},
		{short: "team/fork/master", remotes: []string{"team", "team/fork"}, remote: "team/fork", name: "master", ok: true},
		{short: "gone/master", remotes: []string{"origin"}, remote: "gone", name: "master", ok: true},
		{short: "origin", remotes: []string{"origin"}},
		{short: "origin/", remotes: nil},
	}
	for _, tc := range tests {
		t.Run(tc.short, func(t *testing.T) {
			remote, name, ok := splitRemoteRef(tc.short, tc.remotes)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.remote, remote)
			assert.Equal(t, tc.name, name)
		})
	}
}

func TestSnapshot(t *testing.T) {
	repo := testutil.NewRepo(t, "0.0.4")
	repo.Branch("beta/0.0.1")
	repo.Branch("beta/0.0.4")
	repo.Tag("release/0.0.3")
	repo.Tag("release/0.0.4")
	head, _ := repo.Head()
	repo.AddRemote("origin")
	repo.AddRemote("repo1")
	repo.RemoteBranch("origin", "master", head)
	repo.RemoteBranch("origin", "beta/0.0.3", head)
	repo.RemoteBranch("origin", "beta/0.0.4", head)
	repo.RemoteBranch("repo1", "beta/0.0.2", head)
	repo.WriteFile("untracked.txt", "x")

	b, err := backend.OpenNative(repo.Dir)
	require.NoError(t, err)
	s, err := Snapshot(b)
	require.NoError(t, err)

	assert.Equal(t, head, s.Head)
	assert.Equal(t, "master", s.Branch)
	assert.False(t, s.Detached())
	assert.ElementsMatch(t, []string{"origin", "repo1"}, s.Remotes)
	assert.True(t, s.HasRemote("repo1"))
	assert.False(t, s.HasRemote("repo2"))

	local, remote := s.BetaBranches()
	assert.Equal(t, []string{"beta/0.0.1", "beta/0.0.4"}, names(local))
	assert.Equal(t, []string{"beta/0.0.3", "beta/0.0.4"}, names(remote["origin"]))
	assert.Equal(t, []string{"beta/0.0.2"}, names(remote["repo1"]))
	assert.Equal(t, []string{"release/0.0.3", "release/0.0.4"}, names(s.ReleaseTags()))
	assert.Equal(t, head, s.Tags["release/0.0.4"])
	assert.Equal(t, []string{"origin"}, s.RemoteNames("beta/0.0.4"))

	assert.False(t, s.Status.Dirty(false))
	assert.True(t, s.Status.Dirty(true))
}
