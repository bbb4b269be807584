package compose

// interlacePasses are the starting row and row step of the four GIF
// interlace passes.
var interlacePasses = [4][2]int{
	{0, 8},
	{4, 8},
	{2, 4},
	{1, 2},
}

// Deinterlace reorders the rows of src, stored in interlace pass order, into
// natural order in dst. It stops at the first row missing from src; rows
// that fall past the end of dst are dropped.
func Deinterlace(dst, src []byte, width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	row := 0
	for _, pass := range interlacePasses {
		for y := pass[0]; y < height; y += pass[1] {
			if (row+1)*width > len(src) {
				return
			}
			if (y+1)*width <= len(dst) {
				copy(dst[y*width:(y+1)*width], src[row*width:(row+1)*width])
			}
			row++
		}
	}
}
