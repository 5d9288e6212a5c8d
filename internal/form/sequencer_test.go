package form

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"medcert-apply/internal/catalog"
)

func TestTotalSteps(t *testing.T) {
	for _, c := range catalog.CertificateTypes() {
		want := 3
		if c.ID == catalog.CaretakerCertificateID {
			want = 4
		}
		assert.Equal(t, want, TotalSteps(c.ID), c.ID)
	}
	assert.Equal(t, 3, TotalSteps("unknown"))
}

func TestStepKindFor(t *testing.T) {
	tests := []struct {
		name string
		cert string
		step int
		want StepKind
		ok   bool
	}{
		{"personal", "sick-leave", 1, StepPersonal, true},
		{"medical", "sick-leave", 2, StepMedical, true},
		{"payment is third", "sick-leave", 3, StepPayment, true},
		{"caretaker third", "caretaker", 3, StepCaretaker, true},
		{"caretaker payment fourth", "caretaker", 4, StepPayment, true},
		{"past the end", "sick-leave", 4, "", false},
		{"zero", "caretaker", 0, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := StepKindFor(tt.step, tt.cert)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAdvanceRetreat_Clamped(t *testing.T) {
	for _, total := range []int{3, 4} {
		step := 1
		for i := 0; i < 10; i++ {
			step = Advance(step, total)
			assert.LessOrEqual(t, step, total)
		}
		assert.Equal(t, total, step)

		for i := 0; i < 10; i++ {
			step = Retreat(step)
			assert.GreaterOrEqual(t, step, 1)
		}
		assert.Equal(t, 1, step)
	}
}
