package favicon

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestState_SubmitSuccess(t *testing.T) {
	s := State{}.Edit("example.com").Submit(DeriveLinks)

	require.NoError(t, s.Err)
	assert.False(t, s.Loading)
	assert.Equal(t, 6, s.Links.Len())
	assert.Equal(t, "https://example.com/", s.Links.Target)
}

func TestState_MissingInputKeepsPreviousSet(t *testing.T) {
	prev := State{}.Edit("example.com").Submit(DeriveLinks)
	require.NoError(t, prev.Err)

	s := prev.Edit("").Submit(DeriveLinks)

	assert.ErrorIs(t, s.Err, ErrMissingInput)
	assert.Equal(t, prev.Links, s.Links)
	assert.False(t, s.Loading)
}

func TestState_InvalidURLKeepsPreviousSet(t *testing.T) {
	prev := State{}.Edit("example.com").Submit(DeriveLinks)
	s := prev.Edit("exa mple.com").Submit(DeriveLinks)

	assert.ErrorIs(t, s.Err, ErrInvalidURL)
	assert.Equal(t, prev.Links, s.Links)
}

func TestState_InvalidURLFromEmptyState(t *testing.T) {
	s := State{}.Edit("   ").Submit(DeriveLinks)

	assert.ErrorIs(t, s.Err, ErrInvalidURL)
	assert.True(t, s.Links.IsEmpty())
}

func TestState_SuccessReplacesSetAndClearsError(t *testing.T) {
	s := State{}.Edit("").Submit(DeriveLinks)
	require.Error(t, s.Err)

	s = s.Edit("example.org").Submit(DeriveLinks)
	require.NoError(t, s.Err)
	assert.Equal(t, "https://example.org/", s.Links.Target)
	for _, size := range Sizes {
		link, ok := s.Links.Get(size)
		require.True(t, ok)
		assert.Contains(t, link, "domain_url=https://example.org/")
	}
}

func TestState_SubmitIgnoredWhileLoading(t *testing.T) {
	called := false
	derive := func(string) (LinkSet, error) {
		called = true
		return LinkSet{}, nil
	}

	s := State{Input: "example.com"}.Begin()
	require.True(t, s.Loading)

	next := s.Submit(derive)
	assert.False(t, called)
	assert.Equal(t, s, next)
}

func TestState_TransitionsDoNotMutate(t *testing.T) {
	orig := State{Input: "a.example"}
	_ = orig.Edit("b.example")
	_ = orig.Begin()
	_ = orig.Fail(errors.New("boom"))

	assert.Equal(t, State{Input: "a.example"}, orig)
}

func TestState_Dismiss(t *testing.T) {
	s := State{}.Fail(ErrExportFailure).Dismiss()
	assert.NoError(t, s.Err)
}

func TestState_Snapshot(t *testing.T) {
	s := State{}.Edit("example.com").Submit(DeriveLinks)
	snap := s.Snapshot()

	assert.Equal(t, "example.com", snap.Input)
	assert.Equal(t, "https://example.com/", snap.Target)
	assert.Len(t, snap.Links, 6)
	assert.Empty(t, snap.Error)

	snap = s.Fail(ErrInvalidURL).Snapshot()
	assert.Equal(t, "invalid_url", snap.Code)
	assert.Equal(t, "올바른 URL을 입력해주세요", snap.Error)
	assert.Len(t, snap.Links, 6)
}

func TestCodeAndMessage(t *testing.T) {
	assert.Equal(t, "", Code(nil))
	assert.Equal(t, "missing_input", Code(ErrMissingInput))
	assert.Equal(t, "export_failed", Code(ErrExportFailure))
	assert.Equal(t, "internal", Code(errors.New("x")))
	assert.Equal(t, "URL을 입력해주세요", Message(ErrMissingInput))
	assert.Equal(t, "다운로드 중 오류가 발생했습니다", Message(ErrExportFailure))
}
