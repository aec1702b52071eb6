// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package kvstore

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingBackend struct{ err error }

func (f failingBackend) Get(string) ([]byte, bool, error) { return nil, false, f.err }
func (f failingBackend) Set(string, []byte) error         { return f.err }
func (f failingBackend) Remove(string) error              { return f.err }
func (f failingBackend) Keys(string) ([]string, error)    { return nil, f.err }
func (f failingBackend) Close() error                     { return nil }

type entry struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

func TestStore_SetGetRoundTrip(t *testing.T) {
	s := New(NewMemoryBackend())

	s.Set("chatHistory", []entry{{ID: "1", Text: "rice"}})

	var got []entry
	require.True(t, s.Get("chatHistory", &got))
	assert.Equal(t, []entry{{ID: "1", Text: "rice"}}, got)
	assert.True(t, s.Has("chatHistory"))
}

func TestStore_MissingKey(t *testing.T) {
	s := New(NewMemoryBackend())
	faults := 0
	s.OnFault(func(Fault) { faults++ })

	var got []entry
	assert.False(t, s.Get("nothing", &got))
	assert.False(t, s.Has("nothing"))
	assert.Zero(t, faults, "absent keys are not faults")
}

func TestStore_CorruptValueIsContained(t *testing.T) {
	mem := NewMemoryBackend()
	mem.PutRaw("chatHistory", []byte("{not json"))
	s := New(mem)

	var faults []Fault
	s.OnFault(func(f Fault) { faults = append(faults, f) })

	var got []entry
	assert.False(t, s.Get("chatHistory", &got))
	require.Len(t, faults, 1)
	assert.Equal(t, OpGet, faults[0].Op)
	assert.Equal(t, "chatHistory", faults[0].Key)
}

func TestStore_EncodeFailureIsContained(t *testing.T) {
	mem := NewMemoryBackend()
	s := New(mem)
	var faults []Fault
	s.OnFault(func(f Fault) { faults = append(faults, f) })

	s.Set("bad", make(chan int))

	_, found := mem.Raw("bad")
	assert.False(t, found)
	require.Len(t, faults, 1)
	assert.Equal(t, OpSet, faults[0].Op)
}

func TestStore_BackendFaultsAreContained(t *testing.T) {
	boom := errors.New("disk on fire")
	s := New(failingBackend{err: boom})
	var faults []Fault
	s.OnFault(func(f Fault) { faults = append(faults, f) })

	var v string
	assert.False(t, s.Get("k", &v))
	s.Set("k", "v")
	s.Remove("k")
	assert.Nil(t, s.Keys("k"))

	require.Len(t, faults, 4)
	for _, f := range faults {
		assert.ErrorIs(t, f, boom)
	}
}

func TestStore_NilBackendIsUnavailable(t *testing.T) {
	s := New(nil)
	var faults []Fault
	s.OnFault(func(f Fault) { faults = append(faults, f) })

	var v string
	assert.False(t, s.Get("k", &v))
	s.Set("k", "v")
	s.Remove("k")
	assert.Nil(t, s.Keys(""))
	assert.NoError(t, s.Close())

	require.Len(t, faults, 4)
	assert.ErrorIs(t, faults[0], ErrUnavailable)
}

func TestStore_KeysSorted(t *testing.T) {
	s := New(NewMemoryBackend())
	s.Set("chatMessages_c", 1)
	s.Set("chatMessages_a", 1)
	s.Set("chatMessages_b", 1)
	s.Set("user", 1)

	assert.Equal(t, []string{"chatMessages_a", "chatMessages_b", "chatMessages_c"}, s.Keys("chatMessages_"))
}

func TestStore_Remove(t *testing.T) {
	s := New(NewMemoryBackend())
	s.Set("activeHistoryId", "abc")
	s.Remove("activeHistoryId")
	var v string
	assert.False(t, s.Get("activeHistoryId", &v))
}
