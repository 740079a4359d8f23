package sanitize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type Audit struct {
	Note *string
}

type accountDTO struct {
	Audit
	Username string
	Email    *string
	internal string
	Tags     []string
}

func TestRegisterRejectsDuplicatesAndIncompleteFields(t *testing.T) {
	r := NewRegistry()

	err := Register(r, Field[*accountDTO]{Name: "username"})
	require.Error(t, err)

	require.NoError(t, Register(r, StringField("username", func(a *accountDTO) *string { return &a.Username })))
	require.Error(t, Register(r, StringField("username", func(a *accountDTO) *string { return &a.Username })))

	fields, err := Fields[*accountDTO](r)
	require.NoError(t, err)
	require.Len(t, fields, 1)
	assert.Equal(t, "username", fields[0].Name)
}

func TestRegisterAfterIntrospectionFails(t *testing.T) {
	r := NewRegistry()

	_, err := Fields[*accountDTO](r)
	require.NoError(t, err)

	assert.Error(t, Register(r, StringField("username", func(a *accountDTO) *string { return &a.Username })))
}

func TestIntrospectedFields(t *testing.T) {
	r := NewRegistry()

	fields, err := Fields[*accountDTO](r)
	require.NoError(t, err)

	names := make([]string, 0, len(fields))
	for _, f := range fields {
		names = append(names, f.Name)
	}
	assert.ElementsMatch(t, []string{"Note", "Username", "Email"}, names)

	email := "ops@example.com"
	dto := &accountDTO{Username: "ops", Email: &email}
	for _, f := range fields {
		value, err := f.Get(dto)
		require.NoError(t, err)
		switch f.Name {
		case "Username":
			assert.Equal(t, "ops", value)
			require.NoError(t, f.Set(dto, "ops2"))
		case "Email":
			assert.Equal(t, email, value)
			require.NoError(t, f.Set(dto, "root@example.com"))
		case "Note":
			assert.Equal(t, "", value)
			assert.Error(t, f.Set(dto, "note"))
		}
	}
	assert.Equal(t, "ops2", dto.Username)
	assert.Equal(t, "root@example.com", *dto.Email)
}

type wrapperDTO struct {
	*Audit
	Name string
}

func TestIntrospectedFieldThroughNilEmbeddedPointer(t *testing.T) {
	r := NewRegistry()

	fields, err := Fields[*wrapperDTO](r)
	require.NoError(t, err)

	for _, f := range fields {
		if f.Name != "Note" {
			continue
		}
		_, err := f.Get(&wrapperDTO{Name: "n"})
		assert.Error(t, err)
	}
}

func TestFieldsCachedPerType(t *testing.T) {
	r := NewRegistry()

	first, err := Fields[*accountDTO](r)
	require.NoError(t, err)
	second, err := Fields[*accountDTO](r)
	require.NoError(t, err)

	require.Len(t, second, len(first))
	assert.Same(t, &first[0], &second[0])
}
