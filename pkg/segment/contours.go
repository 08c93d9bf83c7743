package segment

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"
)

var (
	maskOn  = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	maskOff = color.RGBA{R: 0, G: 0, B: 0, A: 255}
)

//ExtractRegions returns the outer boundary of every connected foreground component of mask.
//Nested boundaries are not reported. The order is OpenCV's scan order and carries no meaning.
func ExtractRegions(mask gocv.Mat) []Region {
	contours := gocv.FindContours(mask, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	regions := make([]Region, 0, contours.Size())
	for i := 0; i < contours.Size(); i++ {
		contour := contours.At(i)
		regions = append(regions, Region{
			Points: contour.ToPoints(),
			Rect:   gocv.BoundingRect(contour),
			Area:   gocv.ContourArea(contour),
		})
	}

	return regions
}

//fillRegion paints the silhouette of r (boundary included) into a single channel mask
func fillRegion(mask *gocv.Mat, r Region, c color.RGBA) {
	if len(r.Points) == 0 {
		return
	}

	pv := gocv.NewPointsVectorFromPoints([][]image.Point{r.Points})
	defer pv.Close()

	gocv.DrawContours(mask, pv, 0, c, -1) //thickness -1 == filled
}
