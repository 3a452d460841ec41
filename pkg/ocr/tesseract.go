// Package ocr 通过 tesseract 命令行识别图像文字。
package ocr

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"pdf-qa-go/internal/config"
	"pdf-qa-go/pkg/log"
)

// Tesseract 调用本地 tesseract 可执行文件，图像经 stdin 以 PNG 传入。
type Tesseract struct {
	binary   string
	language string
	psm      int
	timeout  time.Duration
}

// NewTesseract 根据配置创建客户端。
func NewTesseract(cfg config.OCRConfig) *Tesseract {
	t := &Tesseract{
		binary:   cfg.TesseractPath,
		language: cfg.Language,
		psm:      cfg.PSM,
		timeout:  cfg.Timeout,
	}
	if t.binary == "" {
		t.binary = "tesseract"
	}
	if t.psm == 0 {
		t.psm = 6
	}
	return t
}

// Recognize 以配置的页面分割模式（默认 --psm 6）识别文字。
func (t *Tesseract) Recognize(ctx context.Context, img image.Image) (string, error) {
	out, err := t.run(ctx, img, "--psm", strconv.Itoa(t.psm))
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// Confidences 以 tsv 模式运行，返回每一行 conf 列的原始值。
func (t *Tesseract) Confidences(ctx context.Context, img image.Image) ([]string, error) {
	out, err := t.run(ctx, img, "tsv")
	if err != nil {
		return nil, err
	}
	return ParseTSVConfidences(out)
}

func (t *Tesseract) run(ctx context.Context, img image.Image, extra ...string) ([]byte, error) {
	if t.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	var in bytes.Buffer
	if err := png.Encode(&in, img); err != nil {
		return nil, fmt.Errorf("failed to encode image for OCR: %w", err)
	}

	args := []string{"stdin", "stdout"}
	if t.language != "" {
		args = append(args, "-l", t.language)
	}
	args = append(args, extra...)

	cmd := exec.CommandContext(ctx, t.binary, args...)
	cmd.Stdin = &in
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	if err := cmd.Run(); err != nil {
		log.Errorf("[Tesseract] 执行失败, args: %v, stderr: %s", args, strings.TrimSpace(stderr.String()))
		return nil, fmt.Errorf("tesseract failed: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	log.Debugf("[Tesseract] 完成, args: %v, 耗时: %s", args, time.Since(start))
	return stdout.Bytes(), nil
}

// ParseTSVConfidences 从 tesseract 的 TSV 输出中取出 conf 列，保持原始字符串不做解析。
func ParseTSVConfidences(tsv []byte) ([]string, error) {
	scanner := bufio.NewScanner(bytes.NewReader(tsv))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	confCol := -1
	var confs []string
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "" {
			continue
		}
		cols := strings.Split(line, "\t")
		if confCol < 0 {
			for i, c := range cols {
				if c == "conf" {
					confCol = i
				}
			}
			if confCol < 0 {
				return nil, fmt.Errorf("tesseract tsv output has no conf column")
			}
			continue
		}
		if confCol < len(cols) {
			confs = append(confs, cols[confCol])
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read tesseract tsv: %w", err)
	}
	return confs, nil
}
