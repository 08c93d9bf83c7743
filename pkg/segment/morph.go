package segment

import (
	"image"

	"gocv.io/x/gocv"
)

//NewKernel returns the square structuring element used by Clean
func NewKernel(size int) gocv.Mat {
	return gocv.GetStructuringElement(gocv.MorphRect, image.Pt(size, size))
}

//Clean closes then opens mask with a size x size square.
//The input is left untouched, the returned mask must be closed by the caller.
func Clean(mask gocv.Mat, size int) gocv.Mat {
	kernel := NewKernel(size)
	defer kernel.Close()

	return cleanWithKernel(mask, kernel)
}

func cleanWithKernel(mask gocv.Mat, kernel gocv.Mat) gocv.Mat {
	cleaned := mask.Clone()
	gocv.MorphologyEx(cleaned, &cleaned, gocv.MorphClose, kernel)
	gocv.MorphologyEx(cleaned, &cleaned, gocv.MorphOpen, kernel)
	return cleaned
}

//Invert returns the complement of mask (0 <-> 255)
func Invert(mask gocv.Mat) gocv.Mat {
	inverted := gocv.NewMat()
	gocv.BitwiseNot(mask, &inverted)
	return inverted
}
