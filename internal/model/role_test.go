package model

import "testing"

func TestParseRole(t *testing.T) {
	cases := []struct {
		raw  string
		want Role
	}{
		{"student", RoleStudent},
		{"Student", RoleStudent},
		{"TEACHER", RoleTeacher},
		{"Admin", RoleAdmin},
		{" manager ", RoleManager},
		{"Administrative", RoleManager},
	}
	for _, tc := range cases {
		got, err := ParseRole(tc.raw)
		if err != nil {
			t.Fatalf("ParseRole(%q) error: %v", tc.raw, err)
		}
		if got != tc.want {
			t.Fatalf("ParseRole(%q) = %q, want %q", tc.raw, got, tc.want)
		}
	}
}

func TestParseRoleRejectsUnknown(t *testing.T) {
	for _, raw := range []string{"", "principal", "root", "student1"} {
		if _, err := ParseRole(raw); err == nil {
			t.Fatalf("expected ParseRole(%q) to fail", raw)
		}
	}
}
