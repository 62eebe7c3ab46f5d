package phonemize

import "strings"

// punctuationMarks G2P 时原样保留的标点
const punctuationMarks = `;:,.!?¡¿—…"«»“”(){}[]`

type segment struct {
	text string
	mark bool
}

// splitPunctuation 将文本拆为普通文本段与单个标点段，顺序不变
func splitPunctuation(text string) []segment {
	var (
		segments []segment
		buf      strings.Builder
	)
	for _, r := range text {
		if strings.ContainsRune(punctuationMarks, r) {
			if buf.Len() > 0 {
				segments = append(segments, segment{text: buf.String()})
				buf.Reset()
			}
			segments = append(segments, segment{text: string(r), mark: true})
			continue
		}
		buf.WriteRune(r)
	}
	if buf.Len() > 0 {
		segments = append(segments, segment{text: buf.String()})
	}
	return segments
}
