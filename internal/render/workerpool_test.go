package render

import "testing"

func TestPoolRunsJobsAndDeliversResults(t *testing.T) {
	p := NewPool(2, 8)
	for i := 0; i < 5; i++ {
		n := i
		p.Submit(func() Result { return Result{Value: n * 2} })
	}
	sum := 0
	for i := 0; i < 5; i++ {
		r := <-p.Results
		sum += r.Value.(int)
	}
	if sum != (0+2+4+6+8) {
		t.Fatalf("sum = %d, want 20", sum)
	}
	p.Close()
}
