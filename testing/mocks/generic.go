package mocks

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	"github.com/Siasom1/esg-ledger/core/types"
)

// Global variables that can be used for testing. They are non-nil valid values
// for the types commonly needed to test ledger components.
var (
	NoopLogger = zerolog.New(io.Discard)

	GenericError = errors.New("dummy error")

	GenericTime = time.Date(2023, 5, 6, 7, 8, 9, 0, time.UTC)

	GenericCourse = types.Course{
		Title:           "Sustainable Supply Chains",
		Description:     "Measuring scope 3 emissions across suppliers",
		TransactionHash: "0x9f2c6c4a8b6b8d5fa2b1f0b7a7d61a0f2d1c3e4b5a69788796a5b4c3d2e1f001",
	}
)

// GenericClock returns a clock that starts at GenericTime and advances one
// second per call.
func GenericClock() func() time.Time {
	now := GenericTime
	return func() time.Time {
		t := now
		now = now.Add(time.Second)
		return t
	}
}

func GenericCourses(number int) []types.Course {
	courses := make([]types.Course, 0, number)
	for i := 0; i < number; i++ {
		courses = append(courses, types.Course{
			Title:           fmt.Sprintf("Course %d", i),
			Description:     fmt.Sprintf("Description of course %d", i),
			TransactionHash: fmt.Sprintf("0x%064x", i+1),
		})
	}
	return courses
}

// GenericVector returns a classifier output with the given probabilities set
// and every other subtopic at zero.
func GenericVector(probs map[int]float64) []float64 {
	vector := make([]float64, 30)
	for i, p := range probs {
		vector[i] = p
	}
	return vector
}
