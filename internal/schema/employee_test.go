package schema

import (
	"reflect"
	"testing"
)

func TestEmployee_Validate(t *testing.T) {
	cases := []struct {
		name    string
		emp     Employee
		wantErr string
	}{
		{"complete", Employee{"123", "Alice", "Dev", "alice@example.com"}, ""},
		{"missing badge", Employee{"", "Alice", "Dev", "alice@example.com"}, "cod_cracha is required"},
		{"blank name", Employee{"123", "   ", "Dev", "alice@example.com"}, "nm_funcionario is required"},
		{"missing role", Employee{"123", "Alice", "", "alice@example.com"}, "cargo is required"},
		{"missing email", Employee{"123", "Alice", "Dev", ""}, "email is required"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.emp.Validate()
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil || err.Error() != tc.wantErr {
				t.Fatalf("Validate() = %v, want %q", err, tc.wantErr)
			}
		})
	}
}

func TestFromValues(t *testing.T) {
	emp := FromValues([]string{"7", "Bob"})
	want := Employee{BadgeCode: "7", Name: "Bob"}
	if emp != want {
		t.Errorf("FromValues() = %+v, want %+v", emp, want)
	}

	if got := (Employee{"1", "a", "b", "c"}).Values(); !reflect.DeepEqual(got, []string{"1", "a", "b", "c"}) {
		t.Errorf("Values() = %v", got)
	}
}

func TestEmployee_IsEmpty(t *testing.T) {
	if !(Employee{" ", "", "\t", ""}).IsEmpty() {
		t.Error("blank employee should be empty")
	}
	if (Employee{Email: "x@example.com"}).IsEmpty() {
		t.Error("employee with email should not be empty")
	}
}
