package contract

import "testing"

func TestSendResultConfirmed(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		in   *SendResult
		want bool
	}{
		{"nil", nil, false},
		{"empty", &SendResult{}, false},
		{"raw text only", &SendResult{Raw: "I will send the email to Nicole now"}, false},
		{"delivery id", &SendResult{DeliveryID: "msg_1"}, true},
		{"flag", &SendResult{Success: true}, true},
		{"status keyword", &SendResult{Status: " Delivered "}, true},
		{"unknown status", &SendResult{Status: "queued"}, false},
	}
	for _, tc := range cases {
		if got := tc.in.Confirmed(); got != tc.want {
			t.Errorf("%s: Confirmed() = %v, want %v", tc.name, got, tc.want)
		}
	}
}
