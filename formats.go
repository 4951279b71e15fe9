package jpegenc

// AcceptedFormats lists the pixel formats Encode takes: 8-bit gray or RGB
// with packed rows, in either byte order.
func AcceptedFormats() []PixelFormat {
	var formats []PixelFormat
	for _, n := range []int{1, 3} {
		for _, e := range []Endianness{BigEndian, LittleEndian} {
			formats = append(formats, PixelFormat{
				NumChannels: n,
				DataType:    TypeUint8,
				Endianness:  e,
				Align:       0,
			})
		}
	}
	return formats
}
