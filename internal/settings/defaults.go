package settings

func boolPtr(v bool) *bool { return &v }

func writeKnobs(fileType, datatype string, tile []float64) []Knob {
	knobs := []Knob{
		{Type: KnobText, Name: "file_type", Text: fileType},
	}
	if datatype != "" {
		knobs = append(knobs, Knob{Type: KnobText, Name: "datatype", Text: datatype})
	}
	if fileType == "exr" {
		knobs = append(knobs, Knob{Type: KnobText, Name: "compression", Text: "Zip (1 scanline)"})
	}
	return append(knobs,
		Knob{Type: KnobBoolean, Name: "autocrop", Boolean: true},
		Knob{Type: KnobColorGUI, Name: "tile_color", ColorGUI: tile},
		Knob{Type: KnobText, Name: "channels", Text: "rgb"},
		Knob{Type: KnobText, Name: "colorspace", Text: "linear"},
		Knob{Type: KnobBoolean, Name: "create_directories", Boolean: true},
	)
}

// Default returns the settings used when no document exists.
func Default() *Settings {
	s := &Settings{
		ImageIO: ImageIO{
			ActivateHostColorManagement: true,
			Viewer:                      ViewProcess{ViewerProcess: "sRGB"},
			Baking:                      ViewProcess{ViewerProcess: "rec709"},
			Workfile: WorkfileSettings{
				ColorManagement:  ColorManagementNuke,
				NativeOCIOConfig: "nuke-default",
				WorkingSpace:     "linear",
				ThumbnailSpace:   "sRGB",
			},
			Nodes: NodesSettings{
				RequiredNodes: []RequiredNode{
					{Plugins: []string{"CreateWriteRender"}, NodeClass: "Write", Knobs: writeKnobs("exr", "16 bit half", []float64{186, 35, 35})},
					{Plugins: []string{"CreateWritePrerender"}, NodeClass: "Write", Knobs: writeKnobs("exr", "16 bit half", []float64{171, 171, 10})},
					{Plugins: []string{"CreateWriteImage"}, NodeClass: "Write", Knobs: writeKnobs("tiff", "16 bit", []float64{56, 162, 7})},
				},
			},
		},
		Creators: map[string]CreatorSettings{
			"arnold_rop": {ImageFormat: "exr", Farm: boolPtr(true), ChunkSize: 1, DefaultVariants: []string{"main"}},
			"camera":     {DefaultVariants: []string{"main"}},
			"render":     {DefaultVariants: []string{"Main"}},
			"editorial":  {DefaultVariants: []string{"main", "review"}},
		},
		Publish: map[string]PluginSettings{},
	}
	// Defaults are static; validation only compiles the (empty) rule set.
	_ = s.Validate()
	return s
}
