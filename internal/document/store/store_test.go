package store

import (
	"errors"
	"sync"
	"testing"

	"github.com/neubio/neubio/internal/document"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpdateNotifiesSubscribers(t *testing.T) {
	s := New(document.Default())
	var seen []string
	unsub := s.Subscribe(func(doc *document.Document) { seen = append(seen, doc.Profile.Name) })

	require.NoError(t, s.Update(func(doc *document.Document) error {
		doc.Profile.Name = "Ada"
		return nil
	}))
	assert.Equal(t, []string{"Ada"}, seen)

	unsub()
	unsub()
	require.NoError(t, s.Update(func(doc *document.Document) error {
		doc.Profile.Name = "Grace"
		return nil
	}))
	assert.Equal(t, []string{"Ada"}, seen)
	assert.Equal(t, "Grace", s.Snapshot().Profile.Name)
}

func TestUpdateErrorSkipsNotify(t *testing.T) {
	s := New(nil)
	called := false
	s.Subscribe(func(*document.Document) { called = true })

	boom := errors.New("boom")
	err := s.Update(func(doc *document.Document) error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.False(t, called)
}

func TestWithoutSubscribersUpdatesStillApply(t *testing.T) {
	s := New(nil)
	require.NoError(t, s.Update(func(doc *document.Document) error {
		doc.AddSocial(document.NewSocial())
		return nil
	}))
	s.Read(func(doc *document.Document) { assert.Len(t, doc.Socials, 1) })
}

func TestReplaceAndSnapshotIsolation(t *testing.T) {
	s := New(nil)
	var got *document.Document
	s.Subscribe(func(doc *document.Document) { got = doc })

	s.Replace(document.Default())
	require.NotNil(t, got)

	snap := s.Snapshot()
	snap.Socials[0].URL = "mutated"
	s.Read(func(doc *document.Document) {
		assert.NotEqual(t, "mutated", doc.Socials[0].URL)
	})
}

func TestConcurrentUpdates(t *testing.T) {
	s := New(nil)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.Update(func(doc *document.Document) error {
				doc.AddProject(document.NewProject())
				return nil
			})
		}()
	}
	wg.Wait()
	assert.Len(t, s.Snapshot().Projects, 50)
}
