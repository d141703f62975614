package render

import "image"

// Dilate returns a copy of mask where every pixel takes the maximum alpha
// found within radius pixels (a disc). It is the outline mask for a stroke
// of that width.
//
// The disc is split into rows: for each vertical offset the source row is
// max-filtered horizontally with that row's half-width, so each pixel costs
// O(radius) rather than O(radius²).
func Dilate(mask *image.Alpha, radius int) *image.Alpha {
	b := mask.Bounds()
	out := image.NewAlpha(b)
	if radius <= 0 {
		copy(out.Pix, mask.Pix)
		return out
	}

	half := discHalfWidths(radius)
	w, h := b.Dx(), b.Dy()
	filtered := make([]uint8, w)
	queue := make([]int, 0, w)
	for y := 0; y < h; y++ {
		src := mask.Pix[y*mask.Stride : y*mask.Stride+w]
		if isZero(src) {
			continue
		}
		for dy := 0; dy <= radius; dy++ {
			above, below := y-dy, y+dy
			if above < 0 && below >= h {
				break
			}
			queue = rowMax(filtered, src, half[dy], queue)
			if above >= 0 {
				maxInto(out.Pix[above*out.Stride:above*out.Stride+w], filtered)
			}
			if dy > 0 && below < h {
				maxInto(out.Pix[below*out.Stride:below*out.Stride+w], filtered)
			}
		}
	}
	return out
}

// discHalfWidths gives, for each vertical offset 0..radius, the largest
// horizontal offset still inside the disc.
func discHalfWidths(radius int) []int {
	r2 := radius * radius
	half := make([]int, radius+1)
	dx := radius
	for dy := 0; dy <= radius; dy++ {
		for dx*dx+dy*dy > r2 {
			dx--
		}
		half[dy] = dx
	}
	return half
}

// rowMax writes into dst the maximum of src over [x-k, x+k] for every x,
// using a monotonic queue of indices. The queue buffer is returned for reuse.
func rowMax(dst, src []uint8, k int, queue []int) []int {
	n := len(src)
	queue = queue[:0]
	head := 0
	for i := 0; i < n+k; i++ {
		if i < n {
			for len(queue) > head && src[queue[len(queue)-1]] <= src[i] {
				queue = queue[:len(queue)-1]
			}
			queue = append(queue, i)
		}
		x := i - k
		if x < 0 {
			continue
		}
		for queue[head] < x-k {
			head++
		}
		dst[x] = src[queue[head]]
	}
	return queue
}

func maxInto(dst, src []uint8) {
	for i, v := range src {
		if dst[i] < v {
			dst[i] = v
		}
	}
}

func isZero(row []uint8) bool {
	for _, v := range row {
		if v != 0 {
			return false
		}
	}
	return true
}
