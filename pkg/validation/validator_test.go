package validation

import (
	"testing"

	"github.com/gin-gonic/gin/binding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type registerPayload struct {
	Email    string `json:"email" binding:"required,mailaddr"`
	Password string `json:"password" binding:"required,pwd"`
}

func TestVar(t *testing.T) {
	assert.NoError(t, Var("a@x.com", "mailaddr"))
	assert.Error(t, Var("not-an-email", "mailaddr"))
	assert.NoError(t, Var("secret1", "pwd"))
	assert.Error(t, Var("short", "pwd"))
}

func TestToDetails_UsesJSONNames(t *testing.T) {
	Init()
	err := binding.Validator.ValidateStruct(&registerPayload{Email: "nope", Password: "123"})
	require.Error(t, err)

	details := ToDetails(err)
	assert.Equal(t, "must be a valid email", details["email"])
	assert.Equal(t, "must be between 6 and 72 characters long", details["password"])
}

func TestToDetails_Nil(t *testing.T) {
	assert.Nil(t, ToDetails(nil))
}

func TestFieldMessage_Bounds(t *testing.T) {
	cases := []struct {
		value any
		tag   string
		want  string
	}{
		{-1, "gte=0", "must be greater than or equal to 0"},
		{"ab", "min=3", "must be at least 3 characters long"},
		{500, "max=100", "must be at most 100"},
		{"", "required", "is required"},
		{"abc", "uuid4", `failed "uuid4"`},
	}
	for _, tc := range cases {
		details := ToDetails(Var(tc.value, tc.tag))
		require.Len(t, details, 1, tc.tag)
		for _, msg := range details {
			assert.Equal(t, tc.want, msg, tc.tag)
		}
	}
}
