package reference

var hotspots = [...]Hotspot{
	{
		Name:        "CATATUMBO",
		Lat:         7.8939,
		Lng:         -72.5078,
		Level:       LevelHigh,
		Category:    "Zona de Conflicto",
		Description: "Región fronteriza con alta actividad de grupos armados ilegales. Corredor estratégico para narcotráfico y contrabando.",
		Status:      "CONFLICTO ACTIVO",
		Groups:      []string{"ELN", "Disidencias FARC", "Clan del Golfo"},
		Indicators: []Indicator{
			{Label: "Hectáreas coca", Value: "41,000", Trend: TrendUp},
			{Label: "Desplazados", Value: "8,500", Trend: TrendUp},
			{Label: "Ataques mes", Value: "12", Trend: TrendStable},
		},
		Headlines: []Headline{
			{Title: "Enfrentamientos entre ELN y disidencias dejan 5 muertos", Age: "2h"},
			{Title: "Gobierno anuncia mesa de diálogo regional", Age: "1d"},
		},
		Tags: []string{"ARMED", "COCA", "BORDER"},
	},
	{
		Name:        "ARAUCA",
		Lat:         7.0847,
		Lng:         -70.7592,
		Level:       LevelHigh,
		Category:    "Zona de Conflicto",
		Description: "Departamento fronterizo con Venezuela. Presencia histórica del ELN y control territorial disputado.",
		Status:      "ZONA ROJA",
		Groups:      []string{"ELN", "Disidencias"},
		Indicators: []Indicator{
			{Label: "Oleoducto (km)", Value: "283", Trend: TrendStable},
			{Label: "Ataques infra", Value: "8", Trend: TrendDown},
			{Label: "Secuestros", Value: "3", Trend: TrendUp},
		},
		Headlines: []Headline{
			{Title: "Paro armado afecta movilidad en Saravena", Age: "5h"},
			{Title: "Atentado contra oleoducto Caño Limón", Age: "3d"},
		},
		Tags: []string{"ELN", "PETROLEUM", "BORDER"},
	},
	{
		Name:        "TUMACO",
		Lat:         1.8008,
		Lng:         -78.7644,
		Level:       LevelHigh,
		Category:    "Corredor Narcotráfico",
		Description: "Principal puerto del Pacífico para salida de cocaína. Disputado por múltiples organizaciones criminales.",
		Status:      "NARCOTRÁFICO ACTIVO",
		Groups:      []string{"Disidencias", "Clan del Golfo", "Carteles mexicanos"},
		Indicators: []Indicator{
			{Label: "Incautación ton", Value: "45", Trend: TrendUp},
			{Label: "Labs destruidos", Value: "89", Trend: TrendUp},
			{Label: "Homicidios mes", Value: "28", Trend: TrendStable},
		},
		Headlines: []Headline{
			{Title: "Marina incauta semisumergible con 3 toneladas", Age: "12h"},
			{Title: "Erradicación forzada genera protestas", Age: "2d"},
		},
		Tags: []string{"COCAINE", "PORT", "PACIFIC"},
	},
	{
		Name:        "BUENAVENTURA",
		Lat:         3.8801,
		Lng:         -77.0311,
		Level:       LevelElevated,
		Category:    "Puerto Estratégico",
		Description: "Principal puerto comercial de Colombia en el Pacífico. Control territorial por bandas criminales urbanas.",
		Status:      "PUERTO CRÍTICO",
		Groups:      []string{"La Local", "Los Shotas"},
		Indicators: []Indicator{
			{Label: "Contenedores/día", Value: "2,400", Trend: TrendUp},
			{Label: "Extorsiones", Value: "150+", Trend: TrendStable},
			{Label: "PIB puerto", Value: "$12B", Trend: TrendUp},
		},
		Headlines: []Headline{
			{Title: "Paro cívico por crisis de seguridad", Age: "6h"},
			{Title: "Inversión $500M en modernización portuaria", Age: "1w"},
		},
		Tags: []string{"PORT", "TRADE", "URBAN"},
	},
	{
		Name:        "BOGOTÁ D.C.",
		Lat:         4.7110,
		Lng:         -74.0721,
		Level:       LevelElevated,
		Category:    "Capital Nacional",
		Description: "Centro político y económico. Sede del gobierno nacional, Congreso y principales instituciones.",
		Status:      "CAPITAL POLÍTICA",
		Groups:      nil,
		Indicators: []Indicator{
			{Label: "Población", Value: "7.4M", Trend: TrendStable},
			{Label: "Protestas mes", Value: "45", Trend: TrendUp},
			{Label: "PIB %", Value: "26%", Trend: TrendStable},
		},
		Headlines: []Headline{
			{Title: "Marchas masivas en Plaza de Bolívar", Age: "3h"},
			{Title: "Congreso debate reforma tributaria", Age: "1d"},
		},
		Tags: []string{"CAPITAL", "POLITICS", "ECONOMY"},
	},
	{
		Name:        "MEDELLÍN",
		Lat:         6.2442,
		Lng:         -75.5812,
		Level:       LevelLow,
		Category:    "Centro Económico",
		Description: "Segunda ciudad del país. Hub tecnológico y de innovación. Transformación urbana destacada.",
		Status:      "CENTRO ECONÓMICO",
		Groups:      nil,
		Indicators: []Indicator{
			{Label: "PIB regional", Value: "$48B", Trend: TrendUp},
			{Label: "Inversión ext.", Value: "$1.2B", Trend: TrendUp},
			{Label: "Turistas/año", Value: "1.5M", Trend: TrendUp},
		},
		Headlines: []Headline{
			{Title: "Antioquia lidera crecimiento industrial", Age: "2d"},
			{Title: "Feria de las Flores genera $200M", Age: "1w"},
		},
		Tags: []string{"ECONOMY", "TECH", "TOURISM"},
	},
	{
		Name:        "CARTAGENA",
		Lat:         10.3910,
		Lng:         -75.4794,
		Level:       LevelLow,
		Category:    "Puerto Comercial",
		Description: "Principal puerto del Caribe colombiano. Centro turístico y de comercio internacional.",
		Status:      "PUERTO COMERCIAL",
		Groups:      nil,
		Indicators: []Indicator{
			{Label: "Cruceros/año", Value: "380", Trend: TrendUp},
			{Label: "Refinería bpd", Value: "165K", Trend: TrendStable},
			{Label: "Zona Franca", Value: "200+ emp", Trend: TrendUp},
		},
		Headlines: []Headline{
			{Title: "Reficar anuncia expansión $2B", Age: "3d"},
			{Title: "Temporada de cruceros récord", Age: "1w"},
		},
		Tags: []string{"CARIBBEAN", "PORT", "TOURISM"},
	},
	{
		Name:        "CAQUETÁ",
		Lat:         1.6144,
		Lng:         -75.6062,
		Level:       LevelHigh,
		Category:    "Zona de Conflicto",
		Description: "Histórico bastión de las FARC. Ahora disputado por disidencias. Alta producción de coca.",
		Status:      "CONFLICTO ACTIVO",
		Groups:      []string{"Disidencias FARC - EMC"},
		Indicators: []Indicator{
			{Label: "Hectáreas coca", Value: "18,500", Trend: TrendUp},
			{Label: "Deforestación ha", Value: "12,000", Trend: TrendUp},
			{Label: "Líderes sociales", Value: "5 amenazados", Trend: TrendUp},
		},
		Headlines: []Headline{
			{Title: "Asesinato de líder ambiental en Florencia", Age: "8h"},
			{Title: "Operación militar captura 8 disidentes", Age: "2d"},
		},
		Tags: []string{"COCA", "AMAZON", "DEFORESTATION"},
	},
	{
		Name:        "LA GUAJIRA",
		Lat:         11.5444,
		Lng:         -72.9072,
		Level:       LevelElevated,
		Category:    "Zona Fronteriza",
		Description: "Departamento fronterizo con Venezuela. Crisis humanitaria Wayúu. Contrabando activo.",
		Status:      "CRISIS HUMANITARIA",
		Groups:      []string{"Contrabandistas", "Grupos Wayúu"},
		Indicators: []Indicator{
			{Label: "Desnutrición inf.", Value: "12%", Trend: TrendDown},
			{Label: "Contrabando $", Value: "$800M", Trend: TrendStable},
			{Label: "Migración VE", Value: "180K", Trend: TrendUp},
		},
		Headlines: []Headline{
			{Title: "ICBF interviene por muertes infantiles", Age: "1d"},
			{Title: "Incautación récord de gasolina ilegal", Age: "4d"},
		},
		Tags: []string{"BORDER", "HUMANITARIAN", "WAYUU"},
	},
}
