package tracker

import "gonum.org/v1/gonum/mat"

// kalmanState is the 7-d constant-velocity filter from spec §4.6:
// x = [cx, cy, s, h, vcx, vcy, vh], s = w/h, observation z = [cx, cy, s, h].
// Initial covariances match the spec's literal construction order.
type kalmanState struct {
	x *mat.VecDense // 7x1
	P *mat.Dense    // 7x7
	F *mat.Dense    // 7x7
	H *mat.Dense    // 4x7
	Q *mat.Dense    // 7x7
	R *mat.Dense    // 4x4
}

func newKalmanState(cx, cy, s, h float64) *kalmanState {
	x := mat.NewVecDense(7, []float64{cx, cy, s, h, 0, 0, 0})

	f := mat.NewDense(7, 7, nil)
	for i := 0; i < 7; i++ {
		f.Set(i, i, 1)
	}
	f.Set(0, 4, 1)
	f.Set(1, 5, 1)
	f.Set(3, 6, 1)

	h7 := mat.NewDense(4, 7, nil)
	h7.Set(0, 0, 1)
	h7.Set(1, 1, 1)
	h7.Set(2, 2, 1)
	h7.Set(3, 3, 1)

	r := mat.NewDense(4, 4, nil)
	for i := 0; i < 4; i++ {
		r.Set(i, i, 1)
	}
	r.Set(2, 2, r.At(2, 2)*10)
	r.Set(3, 3, r.At(3, 3)*10)

	p := mat.NewDense(7, 7, nil)
	for i := 0; i < 7; i++ {
		p.Set(i, i, 1)
	}
	for i := 4; i < 7; i++ {
		p.Set(i, i, p.At(i, i)*1000)
	}
	for i := 0; i < 7; i++ {
		p.Set(i, i, p.At(i, i)*10)
	}

	q := mat.NewDense(7, 7, nil)
	for i := 0; i < 7; i++ {
		q.Set(i, i, 1)
	}
	q.Set(6, 6, q.At(6, 6)*0.01)
	for i := 4; i < 7; i++ {
		q.Set(i, i, q.At(i, i)*0.01)
	}

	return &kalmanState{x: x, P: p, F: f, H: h7, Q: q, R: r}
}

func (k *kalmanState) predict() {
	var x2 mat.VecDense
	x2.MulVec(k.F, k.x)
	k.x = &x2

	var fp, fpft mat.Dense
	fp.Mul(k.F, k.P)
	fpft.Mul(&fp, k.F.T())
	fpft.Add(&fpft, k.Q)
	k.P = &fpft
}

// update applies a [cx,cy,s,h] observation via the standard Kalman gain
// update; on a singular innovation covariance it leaves the state unchanged,
// and the caller still counts the detection as matched.
func (k *kalmanState) update(z []float64) {
	zVec := mat.NewVecDense(4, z)

	var hx mat.VecDense
	hx.MulVec(k.H, k.x)

	var y mat.VecDense
	y.SubVec(zVec, &hx)

	var hp, hpht mat.Dense
	hp.Mul(k.H, k.P)
	hpht.Mul(&hp, k.H.T())
	hpht.Add(&hpht, k.R)

	var sInv mat.Dense
	if err := sInv.Inverse(&hpht); err != nil {
		return
	}

	var pht, kGain mat.Dense
	pht.Mul(k.P, k.H.T())
	kGain.Mul(&pht, &sInv)

	var ky mat.VecDense
	ky.MulVec(&kGain, &y)

	var xNew mat.VecDense
	xNew.AddVec(k.x, &ky)
	k.x = &xNew

	i7 := mat.NewDense(7, 7, nil)
	for i := 0; i < 7; i++ {
		i7.Set(i, i, 1)
	}
	var kh, ikh, pNew mat.Dense
	kh.Mul(&kGain, k.H)
	ikh.Sub(i7, &kh)
	pNew.Mul(&ikh, k.P)
	k.P = &pNew
}

func (k *kalmanState) boxWH(cx, cy, s, h float64) (x1, y1, x2, y2 float64) {
	w := s * h
	return cx - w/2, cy - h/2, cx + w/2, cy + h/2
}

func (k *kalmanState) box() (x1, y1, x2, y2 float64) {
	cx, cy, s, h := k.x.AtVec(0), k.x.AtVec(1), k.x.AtVec(2), k.x.AtVec(3)
	return k.boxWH(cx, cy, s, h)
}

func observationFromBox(x1, y1, x2, y2 float64) []float64 {
	w := x2 - x1
	h := y2 - y1
	cx := x1 + w/2
	cy := y1 + h/2
	s := 0.0
	if h != 0 {
		s = w / h
	}
	return []float64{cx, cy, s, h}
}
