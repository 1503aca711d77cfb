package mp4writer

import (
	"errors"

	"github.com/Eyevinn/mp4ff/avc"
)

var errNoParameterSets = errors.New("no key frame carries both SPS and PPS")

// parameterSets returns the SPS and PPS of the first key sample holding both.
func parameterSets(samples []sample) (spss, ppss [][]byte, err error) {
	for _, s := range samples {
		if !s.key {
			continue
		}
		spss, ppss = avc.GetParameterSetsFromByteStream(s.data)
		if len(spss) > 0 && len(ppss) > 0 {
			return spss, ppss, nil
		}
	}
	return nil, nil, errNoParameterSets
}

// avcSample turns an Annex B access unit into a length prefixed sample.
// Parameter sets and delimiters are dropped, the avcC box carries them.
func avcSample(data []byte) []byte {
	nalus := avc.ExtractNalusFromByteStream(data)
	if nalus == nil {
		return data
	}
	stream := make([]byte, 0, len(data))
	for _, nalu := range nalus {
		if len(nalu) == 0 {
			continue
		}
		switch avc.GetNaluType(nalu[0]) {
		case avc.NALU_SPS, avc.NALU_PPS, avc.NALU_AUD:
			continue
		}
		stream = append(stream, 0, 0, 0, 1)
		stream = append(stream, nalu...)
	}
	return avc.ConvertByteStreamToNaluSample(stream)
}
