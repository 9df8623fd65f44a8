package points

// IMT550C returns the point table of the IMT550C thermostat. Temperatures are
// tenths of a degree Fahrenheit.
func IMT550C() *Registry {
	tenths := Scale{Factor: 10}

	r, err := NewRegistry(
		Descriptor{
			Name: "cooling_setpoint", Unit: "F", Kind: Real, Address: "4.1.6",
			Range: Interval(45, 95), Access: ReadWrite, Conv: tenths,
		},
		Descriptor{
			Name: "fan_state", Unit: "Mode", Kind: Integer, Address: "4.1.4",
			Range: Codes(0, 1), Access: ReadOnly,
			Conv: NewLookup(map[RegisterValue]float64{0: 0, 1: 0, 2: 1}),
		},
		Descriptor{
			Name: "heating_setpoint", Unit: "F", Kind: Real, Address: "4.1.5",
			Range: Interval(45, 95), Access: ReadWrite, Conv: tenths,
		},
		Descriptor{
			Name: "mode", Unit: "Mode", Kind: Integer, Address: "4.1.1",
			Range: Codes(0, 1, 2, 3), Access: ReadWrite, Conv: Offset{Delta: -1},
		},
		Descriptor{
			// 1 = schedule, 2 = temporary hold, 3 = permanent hold
			Name: "override", Unit: "Mode", Kind: Integer, Address: "4.1.9",
			Range: Codes(0, 1), Access: ReadWrite,
			Conv: NewLookup(map[RegisterValue]float64{1: 0, 2: 0, 3: 1}),
		},
		Descriptor{
			Name: "relative_humidity", Unit: "%RH", Kind: Real, Address: "4.1.14",
			Range: Interval(0, 95), Access: ReadOnly, Conv: Identity,
		},
		Descriptor{
			Name: "state", Unit: "Mode", Kind: Integer, Address: "4.1.2",
			Range: Codes(0, 1, 2), Access: ReadOnly,
			Conv: NewLookup(map[RegisterValue]float64{
				1: 0, 2: 0, 3: 1, 4: 1, 5: 1, 6: 2, 7: 2, 8: 0, 9: 0,
			}),
		},
		Descriptor{
			Name: "temperature", Unit: "F", Kind: Real, Address: "4.1.13",
			Range: Interval(-30, 200), Access: ReadOnly, Conv: tenths,
		},
		Descriptor{
			Name: "fan_mode", Unit: "Mode", Kind: Integer, Address: "4.1.3",
			Range: Codes(1, 2, 3), Access: ReadWrite, Conv: Identity,
		},
	)
	if err != nil {
		panic(err)
	}
	return r
}
