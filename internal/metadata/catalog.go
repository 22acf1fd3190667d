package metadata

// Default returns the built-in catalog for the graduation-records backend.
func Default() *Registry {
	r, err := NewRegistry(
		Entity{
			Name:       "alumnograduacion",
			PrimaryKey: []string{"alumnograduacion_id"},
			Unique:     []string{"alumnograduacion_login", "alumnograduacion_dni", "alumnograduacion_email"},
			RequiredOnCreate: []string{
				"alumnograduacion_login",
				"alumnograduacion_password",
				"alumnograduacion_nombre",
				"alumnograduacion_apellidos",
				"alumnograduacion_titulacion",
				"alumnograduacion_dni",
				"alumnograduacion_telefono",
				"alumnograduacion_direccion",
				"alumnograduacion_email",
			},
			Attachment: &AttachmentRule{
				Field:            "nuevo_alumnograduacion_fotoacto",
				AllowedMIMETypes: []string{"image/jpeg"},
				MaxBytes:         Bytes(1999999),
			},
		},
		Entity{
			Name:             "articulo",
			PrimaryKey:       []string{"CodigoA"},
			Unique:           []string{"ISSN"},
			RequiredOnCreate: []string{"CodigoA", "ISSN", "TituloA"},
		},
		Entity{
			Name:             "ubicacion",
			PrimaryKey:       []string{"id_site"},
			RequiredOnCreate: []string{"id_site"},
		},
	)
	if err != nil {
		panic(err)
	}
	return r
}
