package pipeline

import (
	"image"
	"sort"
)

const (
	thresholdBlockSize = 11
	thresholdC         = 12
)

// PreprocessForOCR 对渲染出的页面图像做 OCR 前处理：灰度化、自适应均值二值化（11x11 邻域, C=12）、3x3 中值去噪。
// 边界按复制边缘像素处理，结果与输入尺寸一致。
func PreprocessForOCR(img image.Image) *image.Gray {
	gray := toGray(img)
	bin := adaptiveThresholdMean(gray, thresholdBlockSize, thresholdC)
	return medianBlur3(bin)
}

// toGray 使用 ITU-R 601-2 亮度公式，与 PIL 的 L 模式转换结果一致。
func toGray(img image.Image) *image.Gray {
	b := img.Bounds()
	out := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		row := out.Pix[y*out.Stride:]
		for x := 0; x < b.Dx(); x++ {
			r, g, bl, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			l := ((r>>8)*19595 + (g>>8)*38470 + (bl>>8)*7471 + 0x8000) >> 16
			row[x] = uint8(l)
		}
	}
	return out
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// adaptiveThresholdMean 的均值通过积分图计算，均值四舍五入为整数后比较：src > mean-c 置 255，否则置 0。
func adaptiveThresholdMean(src *image.Gray, block, c int) *image.Gray {
	w, h := src.Rect.Dx(), src.Rect.Dy()
	out := image.NewGray(image.Rect(0, 0, w, h))
	if w == 0 || h == 0 {
		return out
	}

	r := block / 2
	pw, ph := w+2*r, h+2*r
	stride := pw + 1
	integral := make([]int64, stride*(ph+1))
	for py := 0; py < ph; py++ {
		sy := clamp(py-r, 0, h-1)
		var rowSum int64
		for px := 0; px < pw; px++ {
			sx := clamp(px-r, 0, w-1)
			rowSum += int64(src.Pix[sy*src.Stride+sx])
			integral[(py+1)*stride+px+1] = integral[py*stride+px+1] + rowSum
		}
	}

	area := int64(block * block)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			x1, y1 := x+block, y+block
			sum := integral[y1*stride+x1] - integral[y*stride+x1] - integral[y1*stride+x] + integral[y*stride+x]
			mean := (sum + area/2) / area
			if int64(src.Pix[y*src.Stride+x]) > mean-int64(c) {
				out.Pix[y*out.Stride+x] = 255
			}
		}
	}
	return out
}

func medianBlur3(src *image.Gray) *image.Gray {
	w, h := src.Rect.Dx(), src.Rect.Dy()
	out := image.NewGray(image.Rect(0, 0, w, h))
	var window [9]int
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			n := 0
			for dy := -1; dy <= 1; dy++ {
				sy := clamp(y+dy, 0, h-1)
				for dx := -1; dx <= 1; dx++ {
					sx := clamp(x+dx, 0, w-1)
					window[n] = int(src.Pix[sy*src.Stride+sx])
					n++
				}
			}
			sort.Ints(window[:])
			out.Pix[y*out.Stride+x] = uint8(window[4])
		}
	}
	return out
}
