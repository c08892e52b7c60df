package scoring_test

import (
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/SeunOnTech/sol-stake-backend/common/fault"
	"github.com/SeunOnTech/sol-stake-backend/internal/scoring"
)

func ptr(v float64) *float64 { return &v }

var _ = Describe("Score", func() {
	DescribeTable("computes uptime minus commission within bounds",
		func(uptime float64, commission *float64, want float64) {
			Expect(scoring.Score(uptime, commission)).To(Equal(want))
		},
		Entry("default commission", 98.0, nil, 93.0),
		Entry("commission larger than uptime", 50.0, ptr(80), 0.0),
		Entry("zero commission", 100.0, ptr(0), 100.0),
		Entry("rounds to two decimals", 97.456, ptr(0), 97.46),
		Entry("zero uptime", 0.0, nil, 0.0),
	)

	It("always lands in [0, 100]", func() {
		for u := 0.0; u <= 100; u += 7.3 {
			for c := 0.0; c <= 100; c += 9.1 {
				s := scoring.Score(u, ptr(c))
				Expect(s).To(BeNumerically(">=", 0))
				Expect(s).To(BeNumerically("<=", 100))
			}
		}
	})
})

var _ = Describe("ValidateInputs", func() {
	It("accepts values in range", func() {
		Expect(scoring.ValidateInputs(99.5, ptr(10))).To(Succeed())
		Expect(scoring.ValidateInputs(0, nil)).To(Succeed())
	})

	It("rejects out-of-range uptime as a validation fault", func() {
		err := scoring.ValidateInputs(101, nil)
		Expect(fault.KindOf(err)).To(Equal(fault.KindValidation))

		err = scoring.ValidateInputs(math.NaN(), nil)
		Expect(fault.KindOf(err)).To(Equal(fault.KindValidation))
	})

	It("rejects out-of-range commission", func() {
		err := scoring.ValidateInputs(90, ptr(-1))
		Expect(fault.KindOf(err)).To(Equal(fault.KindValidation))
	})
})
