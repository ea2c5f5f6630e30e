package arcflate

// getMatches leaves the matches at the current position in e.md: md[0] is
// the number of values that follow, then (length, distance-1) pairs of
// increasing length.  With several passes the results of the first pass
// are cached in onePosMatches and replayed by the later ones.
func (e *Encoder) getMatches() {
	if e.isMultiPass {
		e.md = e.onePosMatches[e.pos:]
		if e.secondPass {
			e.pos += uint32(e.md[0]) + 1
			return
		}
	} else {
		e.md = e.distanceMemory
	}

	tmp := e.matchTmp[:]
	n := e.mf.getMatches(tmp)
	md := e.md
	md[0] = uint16(n)
	if n != 0 {
		for i := 0; i < n; i += 2 {
			md[i+1] = uint16(tmp[i])
			md[i+2] = uint16(tmp[i+1])
		}

		// The finder stops at numFastBytes.  Extend such a match as far as
		// the format allows.
		length := tmp[n-2]
		if length == e.numFastBytes && e.numFastBytes != e.matchMaxLen {
			numAvail := e.mf.available() + 1
			if numAvail > e.matchMaxLen {
				numAvail = e.matchMaxLen
			}
			back := -2 - int(tmp[n-1])
			for length < numAvail && e.mf.at(int(length)-1) == e.mf.at(back+int(length)) {
				length++
			}
			md[n-1] = uint16(length)
		}
	}
	if e.isMultiPass {
		e.pos += uint32(n) + 1
	}
	if !e.secondPass {
		e.additionalOffset++
	}
}

func (e *Encoder) movePos(num uint32) {
	if !e.secondPass && num > 0 {
		e.mf.skip(num)
		e.additionalOffset += num
	}
}

// backward reverses the chain of posPrev links ending at cur so that it can
// be walked forward, and returns the first step.
func (e *Encoder) backward(cur uint32) (length uint32, back uint32) {
	e.optimumEndIndex = cur
	posMem := uint32(e.optimum[cur].posPrev)
	backMem := e.optimum[cur].backPrev
	for {
		posPrev := posMem
		backCur := backMem
		backMem = e.optimum[posPrev].backPrev
		posMem = uint32(e.optimum[posPrev].posPrev)
		e.optimum[posPrev].backPrev = backCur
		e.optimum[posPrev].posPrev = uint16(cur)
		cur = posPrev
		if cur == 0 {
			break
		}
	}
	e.optimumCurrentIndex = uint32(e.optimum[0].posPrev)
	return e.optimumCurrentIndex, uint32(e.optimum[0].backPrev)
}

// getOptimal returns the next step of the cheapest parse of the lookahead,
// by the current price model.  A length below matchMinLen is a literal.
func (e *Encoder) getOptimal() (uint32, uint32) {
	if e.optimumEndIndex != e.optimumCurrentIndex {
		opt := &e.optimum[e.optimumCurrentIndex]
		length := uint32(opt.posPrev) - e.optimumCurrentIndex
		back := uint32(opt.backPrev)
		e.optimumCurrentIndex = uint32(opt.posPrev)
		return length, back
	}
	e.optimumCurrentIndex = 0
	e.optimumEndIndex = 0

	e.getMatches()

	var lenEnd uint32
	{
		md := e.md
		numPairs := uint32(md[0])
		if numPairs == 0 {
			return 1, 0
		}
		lenEnd = uint32(md[numPairs-1])
		if lenEnd > e.numFastBytes {
			back := uint32(md[numPairs])
			e.movePos(lenEnd - 1)
			return lenEnd, back
		}

		e.optimum[1].price = uint32(e.literalPrices[e.mf.at(-int(e.additionalOffset))])
		e.optimum[1].posPrev = 0

		e.optimum[2].price = infinityPrice
		e.optimum[2].posPrev = 1

		offs := uint32(0)
		for i := uint32(matchMinLen); i <= lenEnd; i++ {
			dist := uint32(md[offs+2])
			e.optimum[i].posPrev = 0
			e.optimum[i].backPrev = uint16(dist)
			e.optimum[i].price = uint32(e.lenPrices[i-matchMinLen]) + uint32(e.posPrices[getPosSlot(dist)])
			if i == uint32(md[offs+1]) {
				offs += 2
			}
		}
	}

	cur := uint32(0)
	for {
		cur++
		if cur == lenEnd || cur == numOptsBase || e.pos >= matchArrayLimit {
			return e.backward(cur)
		}

		e.getMatches()
		md := e.md
		numPairs := uint32(md[0])
		newLen := uint32(0)
		if numPairs != 0 {
			newLen = uint32(md[numPairs-1])
			if newLen > e.numFastBytes {
				length, back := e.backward(cur)
				e.optimum[cur].backPrev = md[numPairs]
				e.optimumEndIndex = cur + newLen
				e.optimum[cur].posPrev = uint16(e.optimumEndIndex)
				e.movePos(newLen - 1)
				return length, back
			}
		}

		curPrice := e.optimum[cur].price
		{
			b := e.mf.at(int(cur) - int(e.additionalOffset))
			curAnd1Price := curPrice + uint32(e.literalPrices[b])
			opt := &e.optimum[cur+1]
			if curAnd1Price < opt.price {
				opt.price = curAnd1Price
				opt.posPrev = uint16(cur)
			}
		}
		if numPairs == 0 {
			continue
		}

		for lenEnd < cur+newLen {
			lenEnd++
			e.optimum[lenEnd].price = infinityPrice
		}

		offs := uint32(0)
		dist := uint32(md[offs+2])
		curPrice += uint32(e.posPrices[getPosSlot(dist)])
		for lenTest := uint32(matchMinLen); ; lenTest++ {
			curAndLenPrice := curPrice + uint32(e.lenPrices[lenTest-matchMinLen])
			opt := &e.optimum[cur+lenTest]
			if curAndLenPrice < opt.price {
				opt.price = curAndLenPrice
				opt.posPrev = uint16(cur)
				opt.backPrev = uint16(dist)
			}
			if lenTest == uint32(md[offs+1]) {
				offs += 2
				if offs == numPairs {
					break
				}
				curPrice -= uint32(e.posPrices[getPosSlot(dist)])
				dist = uint32(md[offs+2])
				curPrice += uint32(e.posPrices[getPosSlot(dist)])
			}
		}
	}
}

// getOptimalFast takes the longest match at each position.
func (e *Encoder) getOptimalFast() (uint32, uint32) {
	e.getMatches()
	md := e.md
	numPairs := uint32(md[0])
	if numPairs == 0 {
		return 1, 0
	}
	length := uint32(md[numPairs-1])
	back := uint32(md[numPairs])
	e.movePos(length - 1)
	return length, back
}

// tryBlock parses up to blockSizeRes bytes into e.values with the current
// price model and gathers the symbol frequencies of the result.
func (e *Encoder) tryBlock() {
	e.mainFreqs = [fixedMainTableSize]uint32{}
	e.distFreqs = [distTableSize64]uint32{}

	e.valueIndex = 0
	blockSize := e.blockSizeRes
	e.blockSizeRes = 0
	for {
		if e.optimumCurrentIndex == e.optimumEndIndex {
			if e.pos >= matchArrayLimit ||
				e.blockSizeRes >= blockSize ||
				(!e.secondPass && (e.mf.available() == 0 || e.valueIndex >= e.valueBlockSize)) {
				break
			}
		}

		var length, back uint32
		if e.fastMode {
			length, back = e.getOptimalFast()
		} else {
			length, back = e.getOptimal()
		}

		var t token
		if length >= matchMinLen {
			lenMinus3 := length - matchMinLen
			t = makeCopyToken(lenMinus3, back)
			e.mainFreqs[symbolMatch+uint32(gLenSlots[lenMinus3])]++
			e.distFreqs[getPosSlot(back)]++
		} else {
			b := e.mf.at(-int(e.additionalOffset))
			t = makeLiteralToken(b)
			e.mainFreqs[b]++
		}
		e.values[e.valueIndex] = t
		e.valueIndex++
		e.additionalOffset -= length
		e.blockSizeRes += length
	}
	e.mainFreqs[symbolEndOfBlock]++
	e.additionalOffset += e.blockSizeRes
	e.secondPass = true
}

// setPrices derives the parser's price model from a set of code lengths.
// Unused symbols get a fixed penalty price.  The greedy parser has no use
// for prices.
func (e *Encoder) setPrices(levels *tableLevels) {
	if e.fastMode {
		return
	}

	for i := 0; i < 256; i++ {
		price := levels.litLen[i]
		if price == 0 {
			price = noLiteralStatPrice
		}
		e.literalPrices[i] = price
	}

	for i := uint32(0); i < e.numLenCombinations; i++ {
		slot := uint32(gLenSlots[i])
		price := levels.litLen[symbolMatch+slot]
		if price == 0 {
			price = noLenStatPrice
		}
		e.lenPrices[i] = price + e.lenDirectBits[slot]
	}

	for i := 0; i < distTableSize64; i++ {
		price := levels.dist[i]
		if price == 0 {
			price = noPosStatPrice
		}
		e.posPrices[i] = price + distDirectBits[i]
	}
}
