package reference

// Department is a Colombian department with its capital and map anchor.
type Department struct {
	Code       string  `json:"code"`
	Name       string  `json:"name"`
	Capital    string  `json:"capital"`
	Lat        float64 `json:"lat"`
	Lng        float64 `json:"lng"`
	Population string  `json:"population"`
}

var departments = [...]Department{
	{Code: "ANT", Name: "Antioquia", Capital: "Medellín", Lat: 6.2442, Lng: -75.5812, Population: "6.7M"},
	{Code: "ATL", Name: "Atlántico", Capital: "Barranquilla", Lat: 10.9639, Lng: -74.7964, Population: "2.5M"},
	{Code: "BOG", Name: "Bogotá D.C.", Capital: "Bogotá", Lat: 4.7110, Lng: -74.0721, Population: "7.4M"},
	{Code: "BOL", Name: "Bolívar", Capital: "Cartagena", Lat: 10.3910, Lng: -75.4794, Population: "2.2M"},
	{Code: "BOY", Name: "Boyacá", Capital: "Tunja", Lat: 5.5446, Lng: -73.3573, Population: "1.3M"},
	{Code: "CAL", Name: "Caldas", Capital: "Manizales", Lat: 5.0689, Lng: -75.5174, Population: "1.0M"},
	{Code: "CAQ", Name: "Caquetá", Capital: "Florencia", Lat: 1.6144, Lng: -75.6062, Population: "0.5M"},
	{Code: "CAU", Name: "Cauca", Capital: "Popayán", Lat: 2.4419, Lng: -76.6061, Population: "1.5M"},
	{Code: "CES", Name: "Cesar", Capital: "Valledupar", Lat: 10.4769, Lng: -73.2505, Population: "1.1M"},
	{Code: "COR", Name: "Córdoba", Capital: "Montería", Lat: 8.7575, Lng: -75.8856, Population: "1.8M"},
	{Code: "CUN", Name: "Cundinamarca", Capital: "Bogotá", Lat: 4.8342, Lng: -74.3310, Population: "2.9M"},
	{Code: "HUI", Name: "Huila", Capital: "Neiva", Lat: 2.9259, Lng: -75.2879, Population: "1.2M"},
	{Code: "MAG", Name: "Magdalena", Capital: "Santa Marta", Lat: 11.2408, Lng: -74.2110, Population: "1.3M"},
	{Code: "MET", Name: "Meta", Capital: "Villavicencio", Lat: 4.1420, Lng: -73.6266, Population: "1.0M"},
	{Code: "NAR", Name: "Nariño", Capital: "Pasto", Lat: 1.2136, Lng: -77.2811, Population: "1.8M"},
	{Code: "NSA", Name: "Norte de Santander", Capital: "Cúcuta", Lat: 7.8939, Lng: -72.5078, Population: "1.4M"},
	{Code: "PUT", Name: "Putumayo", Capital: "Mocoa", Lat: 1.1494, Lng: -76.6519, Population: "0.4M"},
	{Code: "QUI", Name: "Quindío", Capital: "Armenia", Lat: 4.5339, Lng: -75.6811, Population: "0.6M"},
	{Code: "RIS", Name: "Risaralda", Capital: "Pereira", Lat: 4.8133, Lng: -75.6961, Population: "1.0M"},
	{Code: "SAN", Name: "Santander", Capital: "Bucaramanga", Lat: 7.1254, Lng: -73.1198, Population: "2.2M"},
	{Code: "SUC", Name: "Sucre", Capital: "Sincelejo", Lat: 9.3047, Lng: -75.3978, Population: "0.9M"},
	{Code: "TOL", Name: "Tolima", Capital: "Ibagué", Lat: 4.4389, Lng: -75.2322, Population: "1.4M"},
	{Code: "VAC", Name: "Valle del Cauca", Capital: "Cali", Lat: 3.4516, Lng: -76.5320, Population: "4.7M"},
	{Code: "ARA", Name: "Arauca", Capital: "Arauca", Lat: 7.0847, Lng: -70.7592, Population: "0.3M"},
	{Code: "CAS", Name: "Casanare", Capital: "Yopal", Lat: 5.3378, Lng: -72.3959, Population: "0.4M"},
	{Code: "CHO", Name: "Chocó", Capital: "Quibdó", Lat: 5.6947, Lng: -76.6611, Population: "0.5M"},
	{Code: "GUA", Name: "Guaviare", Capital: "San José", Lat: 2.5719, Lng: -72.6408, Population: "0.1M"},
	{Code: "LAG", Name: "La Guajira", Capital: "Riohacha", Lat: 11.5444, Lng: -72.9072, Population: "1.0M"},
	{Code: "VID", Name: "Vichada", Capital: "Puerto Carreño", Lat: 6.1892, Lng: -67.4858, Population: "0.1M"},
	{Code: "AMA", Name: "Amazonas", Capital: "Leticia", Lat: -4.2153, Lng: -69.9406, Population: "0.08M"},
	{Code: "GUV", Name: "Guainía", Capital: "Inírida", Lat: 3.8653, Lng: -67.9239, Population: "0.05M"},
	{Code: "VAU", Name: "Vaupés", Capital: "Mitú", Lat: 1.2536, Lng: -70.2339, Population: "0.04M"},
}
