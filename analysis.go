package arcflate

// studyFrequenciesX counts the code length alphabet symbols of xtokens.
func studyFrequenciesX(xtokens []token, freqX []uint32) {
	for _, t := range xtokens {
		if symX, _, _ := t.symbolX(); symX >= 0 {
			freqX[symX]++
		}
	}
}

// encodeTreeTokens run-length codes the code lengths in sizes and appends
// the resulting tree tokens to xtokens.  A run of a nonzero length emits the
// length once and then repeats of 3..6; a zero run uses the 3..10 and 11..138
// codes.  Runs shorter than the minimum are emitted one length at a time.
func encodeTreeTokens(xtokens []token, sizes []byte) []token {
	numSizes := len(sizes)
	if numSizes == 0 {
		return xtokens
	}

	prevLen := 0xff
	nextLen := int(sizes[0])
	count := uint(0)
	maxCount, minCount := uint(7), uint(4)
	if nextLen == 0 {
		maxCount, minCount = 138, 3
	}

	for n := 0; n < numSizes; n++ {
		curLen := nextLen
		nextLen = 0xff
		if n < numSizes-1 {
			nextLen = int(sizes[n+1])
		}
		count++
		if count < maxCount && curLen == nextLen {
			continue
		}

		switch {
		case count < minCount:
			for i := uint(0); i < count; i++ {
				xtokens = append(xtokens, makeTreeLenToken(byte(curLen)))
			}
		case curLen != 0:
			if curLen != prevLen {
				xtokens = append(xtokens, makeTreeLenToken(byte(curLen)))
				count--
			}
			xtokens = append(xtokens, makeTreeDupToken(count))
		default:
			xtokens = append(xtokens, makeTreeZeroRunToken(count))
		}

		count = 0
		prevLen = curLen

		switch {
		case nextLen == 0:
			maxCount, minCount = 138, 3
		case curLen == nextLen:
			maxCount, minCount = 6, 3
		default:
			maxCount, minCount = 7, 4
		}
	}
	return xtokens
}
