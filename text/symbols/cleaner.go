package symbols

// Clean 将音素串逐字符映射为 id，符号表之外的字符直接丢弃
//
// 不做大小写或 Unicode 归一化；除 ASCII 空格外的空白字符都会被丢弃
func Clean(phonemes string) []int64 {
	initTable()
	ids := make([]int64, 0, len(phonemes))
	for _, r := range phonemes {
		if id, ok := symbolIDs[r]; ok {
			ids = append(ids, id)
		}
	}
	return ids
}

// Frame 在序列首尾各补一个 PadID
func Frame(ids []int64) []int64 {
	out := make([]int64, 0, len(ids)+2)
	out = append(out, PadID)
	out = append(out, ids...)
	return append(out, PadID)
}
