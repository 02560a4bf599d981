package payments_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Muhsin-Gun/event-API/internal/modules/payments"
)

func TestNormalizePhone(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"0712345678", "254712345678"},
		{"712345678", "254712345678"},
		{"254712345678", "254712345678"},
		{"+254 712 345 678", "254712345678"},
		{"07-12-34-56-78", "254712345678"},
		{"0112345678", "0112345678"}, // no rewrite rule, left as cleaned
		{"", ""},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, payments.NormalizePhone(tc.in), "input %q", tc.in)
	}
}

func TestValidMSISDN(t *testing.T) {
	require.True(t, payments.ValidMSISDN("254712345678"))
	require.True(t, payments.ValidMSISDN("254799999999"))

	require.False(t, payments.ValidMSISDN("0712345678"), "local form must be normalized first")
	require.False(t, payments.ValidMSISDN("25471234567"), "too short")
	require.False(t, payments.ValidMSISDN("2547123456789"), "too long")
	require.False(t, payments.ValidMSISDN("254112345678"), "not a 7xx mobile prefix")
	require.False(t, payments.ValidMSISDN(""))
}
