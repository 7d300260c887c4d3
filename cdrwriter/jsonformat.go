package cdrwriter

import (
	"encoding/json"
	"freediameterd/diammsg"
	"freediameterd/radiuscodec"

	"golang.org/x/exp/slices"
)

type JSONWriter struct {
	positiveFilter []string
	negativeFilter []string
}

// Creates a new instance of a JSON Writer
func NewJSONWriter(positiveFilter []string, negativeFilter []string) *JSONWriter {
	lw := JSONWriter{
		positiveFilter: positiveFilter,
		negativeFilter: negativeFilter,
	}

	return &lw
}

///---> What to write to ELASTIC?

// Write CDR as a JSON array of the AVPs that pass the filters
func (w *JSONWriter) GetDiameterCDRString(dm *diammsg.DiameterMessage) string {
	toSerialize := make([]*diammsg.DiameterAVP, 0)

	// Write AVPs
	for i := range dm.AVPs {

		// Apply filters
		if w.positiveFilter != nil && !slices.Contains(w.positiveFilter, dm.AVPs[i].Name) {
			continue
		} else if w.negativeFilter != nil && slices.Contains(w.negativeFilter, dm.AVPs[i].Name) {
			continue
		}

		toSerialize = append(toSerialize, &dm.AVPs[i])
	}

	jsonAttributes, _ := json.Marshal(toSerialize)
	return string(jsonAttributes)
}

// Write CDR as a JSON array of the attributes that pass the filters
func (w *JSONWriter) GetRadiusCDRString(rp *radiuscodec.RadiusPacket) string {

	toSerialize := make([]*radiuscodec.RadiusAVP, 0)

	// Write AVPs
	for i := range rp.AVPs {

		// Apply filters
		if w.positiveFilter != nil && !slices.Contains(w.positiveFilter, rp.AVPs[i].Name) {
			continue
		} else if w.negativeFilter != nil && slices.Contains(w.negativeFilter, rp.AVPs[i].Name) {
			continue
		}

		toSerialize = append(toSerialize, &rp.AVPs[i])
	}

	jsonAttributes, _ := json.Marshal(toSerialize)
	return string(jsonAttributes)
}