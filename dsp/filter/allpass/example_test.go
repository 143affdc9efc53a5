package allpass_test

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-phaser/dsp/filter/allpass"
)

func ExampleMakeAllPass() {
	c := allpass.MakeAllPass(48000, 1000)

	fmt.Printf("b0=%.3f b1=%.0f a0=%.0f a1=%.3f\n", c.B0, c.B1, c.A0, c.A1)
	fmt.Printf("|H(440 Hz)|=%.6f\n", math.Sqrt(c.MagnitudeSquared(440, 48000)))

	// Output:
	// b0=-0.877 b1=1 a0=1 a1=0.877
	// |H(440 Hz)|=1.000000
}

func ExampleBank_ProcessStages() {
	bank, err := allpass.NewBank(2)
	if err != nil {
		fmt.Println("error")
		return
	}

	bank.Update(48000, 1000)

	states := make([]allpass.State, bank.Len())
	for _, x := range []float64{1, 0, 0, 0} {
		_ = bank.ProcessStages(x, states)
	}

	fmt.Println(bank.Len())
	// Output:
	// 2
}
