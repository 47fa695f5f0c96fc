package document

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func socialIDs(d *Document) []string {
	out := make([]string, 0, len(d.Socials))
	for _, s := range d.Socials {
		out = append(out, s.ID)
	}
	return out
}

func TestNewIDUnique(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 1000; i++ {
		id := NewID()
		require.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
}

func TestSocialAddRemove(t *testing.T) {
	d := &Document{}
	a := d.AddSocial(NewSocial())
	b := d.AddSocial(Social{Icon: "fa6-brands:github", URL: "https://github.com"})
	require.NotEmpty(t, b.ID)
	assert.NotEqual(t, a.ID, b.ID)

	got, err := d.Social(b.ID)
	require.NoError(t, err)
	got.Label = "code"
	assert.Equal(t, "code", d.Socials[1].Label)

	require.NoError(t, d.RemoveSocial(a.ID))
	assert.Equal(t, []string{b.ID}, socialIDs(d))
	assert.ErrorIs(t, d.RemoveSocial(a.ID), ErrNotFound)
	_, err = d.Social("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMoveSocial(t *testing.T) {
	d := &Document{Socials: []Social{{ID: "a"}, {ID: "b"}, {ID: "c"}}}

	require.NoError(t, d.MoveSocial("c", 0))
	assert.Equal(t, []string{"c", "a", "b"}, socialIDs(d))

	require.NoError(t, d.MoveSocial("c", 99))
	assert.Equal(t, []string{"a", "b", "c"}, socialIDs(d))

	require.NoError(t, d.MoveSocial("b", -3))
	assert.Equal(t, []string{"b", "a", "c"}, socialIDs(d))

	assert.ErrorIs(t, d.MoveSocial("zz", 0), ErrNotFound)
}

func TestProjectOps(t *testing.T) {
	d := &Document{}
	p := d.AddProject(NewProject())
	q := d.AddProject(NewProject())
	assert.Equal(t, PlaceholderImage, p.Image)
	assert.Equal(t, DefaultFlipInterval, p.AutoFlip.Interval)

	require.NoError(t, d.MoveProject(q.ID, 0))
	assert.Equal(t, q.ID, d.Projects[0].ID)

	got, err := d.Project(p.ID)
	require.NoError(t, err)
	got.Hidden = true
	assert.True(t, d.Projects[1].Hidden)

	require.NoError(t, d.RemoveProject(q.ID))
	require.Len(t, d.Projects, 1)
	assert.ErrorIs(t, d.RemoveProject(q.ID), ErrNotFound)
}

func TestPublicHidesAdmin(t *testing.T) {
	d := Default()
	pub := d.Public()
	assert.Empty(t, pub.Admin.PasswordHash)
	assert.NotEmpty(t, d.Admin.PasswordHash)

	pub.Socials[0].URL = "changed"
	assert.NotEqual(t, "changed", d.Socials[0].URL)
}
