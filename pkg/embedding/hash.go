package embedding

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

// DefaultHashDimensions 与 all-MiniLM-L6-v2 的输出维度一致。
const DefaultHashDimensions = 384

// HashEmbedder 是离线可用的确定性嵌入：小写词元与相邻词对经 FNV-1a 哈希到固定维度后做 L2 归一化。
type HashEmbedder struct {
	dims int
}

// NewHashEmbedder 创建 HashEmbedder，dims<=0 时使用 DefaultHashDimensions。
func NewHashEmbedder(dims int) *HashEmbedder {
	if dims <= 0 {
		dims = DefaultHashDimensions
	}
	return &HashEmbedder{dims: dims}
}

func (h *HashEmbedder) ModelVersion() string {
	return fmt.Sprintf("fnv-hash-%d", h.dims)
}

// CreateEmbedding 不会返回零向量：没有词元的文本落在固定的第 0 维。
func (h *HashEmbedder) CreateEmbedding(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	vec := make([]float64, h.dims)
	tokens := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	for i, tok := range tokens {
		h.add(vec, tok, 1)
		if i > 0 {
			h.add(vec, tokens[i-1]+" "+tok, 0.5)
		}
	}

	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	out := make([]float32, h.dims)
	if norm == 0 {
		out[0] = 1
		return out, nil
	}
	norm = math.Sqrt(norm)
	for i, v := range vec {
		out[i] = float32(v / norm)
	}
	return out, nil
}

func (h *HashEmbedder) add(vec []float64, feature string, weight float64) {
	f := fnv.New64a()
	_, _ = f.Write([]byte(feature))
	sum := f.Sum64()
	idx := int(sum % uint64(h.dims))
	if (sum>>63)&1 == 1 {
		weight = -weight
	}
	vec[idx] += weight
}
