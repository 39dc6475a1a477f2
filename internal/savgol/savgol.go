// Package savgol implements Savitzky-Golay smoothing: each sample is replaced
// by the value of a least-squares polynomial fitted over a sliding window.
package savgol

import "errors"

// Errors returned by Filter.
var (
	ErrWindowEven     = errors.New("savgol: window length must be odd")
	ErrWindowTooSmall = errors.New("savgol: window length must exceed polynomial degree")
	ErrDataTooShort   = errors.New("savgol: data shorter than window")
	ErrBadDegree      = errors.New("savgol: degree must be non-negative")
)

// Filter smooths data with a Savitzky-Golay filter of the given window length
// and polynomial degree. Near the edges the window is anchored at the
// boundary rather than shrunk, so every fit uses the full window.
func Filter(data []float64, window, degree int) ([]float64, error) {
	if degree < 0 {
		return nil, ErrBadDegree
	}

	if window%2 == 0 {
		return nil, ErrWindowEven
	}

	if window <= degree {
		return nil, ErrWindowTooSmall
	}

	if len(data) < window {
		return nil, ErrDataTooShort
	}

	out := make([]float64, len(data))
	half := window / 2
	coeffs := make([]float64, degree+1)

	for i := range data {
		// Anchor the window inside the data.
		start := i - half
		if start < 0 {
			start = 0
		}

		if start > len(data)-window {
			start = len(data) - window
		}

		if err := polyfit(coeffs, data[start:start+window], degree); err != nil {
			return nil, err
		}

		out[i] = polyval(coeffs, float64(i-start))
	}

	return out, nil
}

// polyfit fits a polynomial of the given degree to y sampled at x = 0..len(y)-1,
// writing the coefficients (constant term first) into coeffs.
func polyfit(coeffs, y []float64, degree int) error {
	n := degree + 1

	// Normal equations: (X'X) c = X'y with X[i][j] = i^j.
	a := make([][]float64, n)
	b := make([]float64, n)

	for r := 0; r < n; r++ {
		a[r] = make([]float64, n)
	}

	for i, v := range y {
		x := float64(i)
		pow := make([]float64, n)
		pow[0] = 1

		for j := 1; j < n; j++ {
			pow[j] = pow[j-1] * x
		}

		for r := 0; r < n; r++ {
			b[r] += pow[r] * v
			for c := 0; c < n; c++ {
				a[r][c] += pow[r] * pow[c]
			}
		}
	}

	return solve(a, b, coeffs)
}

// polyval evaluates the polynomial (constant term first) at x.
func polyval(coeffs []float64, x float64) float64 {
	v := 0.0
	for i := len(coeffs) - 1; i >= 0; i-- {
		v = v*x + coeffs[i]
	}

	return v
}

var errSingular = errors.New("savgol: singular normal equations")

// solve performs Gaussian elimination with partial pivoting on a*x = b,
// writing the solution into x. a and b are destroyed.
func solve(a [][]float64, b, x []float64) error {
	n := len(b)

	for col := 0; col < n; col++ {
		pivot := col
		for r := col + 1; r < n; r++ {
			if abs(a[r][col]) > abs(a[pivot][col]) {
				pivot = r
			}
		}

		if a[pivot][col] == 0 {
			return errSingular
		}

		a[col], a[pivot] = a[pivot], a[col]
		b[col], b[pivot] = b[pivot], b[col]

		for r := col + 1; r < n; r++ {
			f := a[r][col] / a[col][col]
			for c := col; c < n; c++ {
				a[r][c] -= f * a[col][c]
			}

			b[r] -= f * b[col]
		}
	}

	for r := n - 1; r >= 0; r-- {
		v := b[r]
		for c := r + 1; c < n; c++ {
			v -= a[r][c] * x[c]
		}

		x[r] = v / a[r][r]
	}

	return nil
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}

	return v
}
