package sampler

// mixBits is the splitmix64 finalizer, used to derive decorrelated
// stream seeds from pixel coordinates and sample indices.
func mixBits(v uint64) uint64 {
	v ^= v >> 31
	v *= 0x7fb5d329728ea185
	v ^= v >> 27
	v *= 0x81dadef4bc2dd44d
	v ^= v >> 33
	return v
}

// hash combines any number of words into one seed
func hash(vs ...uint64) uint64 {
	var h uint64 = 0x9e3779b97f4a7c15
	for _, v := range vs {
		h = mixBits(h ^ v)
	}
	return h
}

// permutationElement returns the position of element i under a random
// permutation of [0, n) selected by seed, using cycle-walking on a
// reversible mix of the index bits. The stratified sampler uses it to
// decorrelate stratum visit order across dimensions.
func permutationElement(i, n uint32, seed uint64) uint32 {
	w := n - 1
	w |= w >> 1
	w |= w >> 2
	w |= w >> 4
	w |= w >> 8
	w |= w >> 16
	for {
		i ^= uint32(seed)
		i *= 0xe170893d
		i ^= uint32(seed >> 16)
		i ^= (i & w) >> 4
		i ^= uint32(seed >> 8)
		i *= 0x0929eb3f
		i ^= uint32(seed >> 23)
		i ^= (i & w) >> 1
		i *= 1 | uint32(seed>>27)
		i *= 0x6935fa69
		i ^= (i & w) >> 11
		i *= 0x74dcca23
		i ^= (i & w) >> 2
		i *= 0x9e501cc3
		i ^= (i & w) >> 2
		i *= 0xc860a3df
		i &= w
		i ^= i >> 5
		if i < n {
			return (i + uint32(seed)) % n
		}
	}
}
