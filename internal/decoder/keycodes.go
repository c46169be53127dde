package decoder

// keycodes X11 keycode -> 字符, 只覆盖字母和空格
var keycodes = map[uint8]rune{
	24: 'q', 25: 'w', 26: 'e', 27: 'r', 28: 't',
	29: 'y', 30: 'u', 31: 'i', 32: 'o', 33: 'p',
	38: 'a', 39: 's', 40: 'd', 41: 'f', 42: 'g',
	43: 'h', 44: 'j', 45: 'k', 46: 'l',
	52: 'z', 53: 'x', 54: 'c', 55: 'v', 56: 'b',
	57: 'n', 58: 'm',
	65: ' ',
}

// Lookup 查表, 表外的 keycode 返回 false
func Lookup(code uint8) (rune, bool) {
	r, ok := keycodes[code]
	return r, ok
}
