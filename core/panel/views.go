package panel

import (
	"github.com/pkg/errors"
)

var ErrUnknownView = errors.New("unknown admin view")

// View selects the single management panel shown on the admin dashboard.
type View int

const (
	Home View = iota
	Users
	Subjects
	UserTypes
	Transfers
	Transports
	Grades
	Groups
	Questions
	FamilyRelations
	CarouselImages
	AboutUs
	WelcomeTexts
	MissionVision
	News
	Cultural
	Inscription
	TechCareers
	StudentsInfo

	viewCount // keep last
)

type (
	// Column is one rendered field of a listed record.
	Column struct {
		Field string
		Label string
		Image bool // base64 encoded picture
	}

	// Source is a backend listing rendered as one table.
	Source struct {
		Title    string
		Endpoint string
		Envelope string // key wrapping the records in the response; empty for a bare array
		Columns  []Column
	}

	// Spec describes what a View renders.
	Spec struct {
		Key     string
		Title   string
		Group   string
		PerPage int // 0: no pagination
		Sources []Source
	}
)

const (
	groupTables  = "TABLAS"
	groupWebsite = "DISEÑO WEB"
	groupInfo    = "INFORMACIÓN"
)

var specs = [viewCount]Spec{
	Home: {Key: "headeraddmin", Title: "INICIO"},
	Users: {
		Key: "usuarios", Title: "USUARIOS", Group: groupTables, PerPage: 4,
		Sources: []Source{{
			Title: "Lista de Usuarios", Endpoint: "usuario",
			Columns: []Column{
				{Field: "id_usuario", Label: "ID"},
				{Field: "nombre_usuario", Label: "Nombre"},
				{Field: "app_usuario", Label: "Apellido Paterno"},
				{Field: "apm_usuario", Label: "Apellido Materno"},
				{Field: "correo_usuario", Label: "Correo"},
				{Field: "nombre_rol", Label: "Rol"},
				{Field: "phone_usuario", Label: "Teléfono"},
				{Field: "foto_usuario", Label: "Foto", Image: true},
			},
		}},
	},
	Subjects: {
		Key: "asignaturas", Title: "ASIGNATURAS", Group: groupTables, PerPage: 8,
		Sources: []Source{idName("Asignaturas", "asignatura", "asignaturas", "id_asignatura", "nombre_asignatura")},
	},
	UserTypes: {
		Key: "tipousuarios", Title: "TIPOS DE USUARIO", Group: groupTables, PerPage: 8,
		Sources: []Source{idName("Tipos de Rol", "tipo_rol", "", "id_tipo_rol", "nombre_tipo_rol")},
	},
	Transfers: {
		Key: "traslados", Title: "TRASLADOS", Group: groupTables, PerPage: 8,
		Sources: []Source{idName("Traslados", "traslado", "", "id_traslado", "nombre_traslado")},
	},
	Transports: {
		Key: "transportes", Title: "TRANSPORTES", Group: groupTables, PerPage: 8,
		Sources: []Source{idName("Transportes", "traslado_transporte", "", "id_traslado_transporte", "nombre_traslado_transporte")},
	},
	Grades: {
		Key: "grados", Title: "GRADOS", Group: groupTables, PerPage: 8,
		Sources: []Source{idName("Grados", "grado", "", "id_grado", "nombre_grado")},
	},
	Groups: {
		Key: "grupos", Title: "GRUPOS", Group: groupTables, PerPage: 8,
		Sources: []Source{idName("Grupos", "grupo", "", "id_grupos", "nombre_grupos")},
	},
	Questions: {
		Key: "preguntas", Title: "PREGUNTAS", Group: groupTables, PerPage: 8,
		Sources: []Source{idName("Preguntas", "pregunta", "", "id_preguntas", "nombre_preguntas")},
	},
	FamilyRelations: {
		Key: "relacionfamiliar", Title: "RELACIÓN FAMILIAR", Group: groupTables, PerPage: 8,
		Sources: []Source{idName("Relaciones Familiares", "relaciones_familiares", "relaciones_familiares", "id_relacion_familiar", "nombre_relacion_familiar")},
	},
	CarouselImages: {
		Key: "carrusel", Title: "CARRUSEL", Group: groupWebsite,
		Sources: []Source{{
			Title: "Imágenes del Carrusel", Endpoint: "carrusel_imgs", Envelope: "carrusel_imgs",
			Columns: []Column{{Field: "id_carrusel", Label: "ID"}, {Field: "carrusel", Label: "Imagen", Image: true}},
		}},
	},
	AboutUs: {
		Key: "sobremi", Title: "SOBRE NOSOTROS", Group: groupWebsite,
		Sources: []Source{{
			Title: "Sobre Nosotros", Endpoint: "sobre_nosotros",
			Columns: []Column{
				{Field: "id_sobre_nosotros", Label: "ID"},
				{Field: "txt_sobre_nosotros", Label: "Texto"},
				{Field: "fecha_sobre_nosotros", Label: "Fecha"},
			},
		}},
	},
	WelcomeTexts: {
		Key: "bienvenidaa", Title: "BIENVENIDA", Group: groupWebsite,
		Sources: []Source{{
			Title: "Bienvenida", Endpoint: "welcome",
			Columns: []Column{
				{Field: "id_welcome", Label: "ID"},
				{Field: "welcome_text", Label: "Texto"},
				{Field: "foto_welcome", Label: "Foto", Image: true},
			},
		}},
	},
	MissionVision: {
		Key: "misionvision", Title: "MISIÓN Y VISIÓN", Group: groupWebsite,
		Sources: []Source{
			{
				Title: "Misión", Endpoint: "mision",
				Columns: []Column{{Field: "id_mision", Label: "ID"}, {Field: "mision_text", Label: "Misión"}},
			},
			{
				Title: "Visión", Endpoint: "vision",
				Columns: []Column{{Field: "id_vision", Label: "ID"}, {Field: "vision_text", Label: "Visión"}},
			},
		},
	},
	News: {
		Key: "noticias", Title: "NOTICIAS", Group: groupWebsite, PerPage: 5,
		Sources: []Source{{
			Title: "Actividades y Noticias", Endpoint: "actividades_noticias",
			Columns: []Column{
				{Field: "id_actividades_noticias", Label: "ID"},
				{Field: "titulo_actividad_noticia", Label: "Título"},
				{Field: "descripcion_actividad_noticia", Label: "Descripción"},
				{Field: "fecha_actividad_noticias", Label: "Fecha"},
				{Field: "imagen_actividad_noticia", Label: "Imagen", Image: true},
			},
		}},
	},
	Cultural: {
		Key: "cultural", Title: "CULTURAL", Group: groupWebsite,
		Sources: []Source{{
			Title: "Actividades Culturales", Endpoint: "actividades_culturales",
			Columns: []Column{
				{Field: "id_actividad_cultural", Label: "ID"},
				{Field: "nombre_actividad_cultural", Label: "Nombre"},
				{Field: "descripcion_actividad_cultural", Label: "Descripción"},
				{Field: "imagen_actividad_cultural", Label: "Imagen", Image: true},
			},
		}},
	},
	Inscription: {
		Key: "inscripcion", Title: "INSCRIPCIÓN", Group: groupWebsite,
		Sources: []Source{{
			Title: "Información de Inscripción", Endpoint: "info_inscription",
			Columns: []Column{
				{Field: "id_info_inscription", Label: "ID"},
				{Field: "txt_info_inscription", Label: "Texto"},
				{Field: "requeriments_info_inscription", Label: "Requisitos"},
				{Field: "periodo_info_inscripcion", Label: "Periodo"},
				{Field: "imagen_info_inscription", Label: "Imagen", Image: true},
			},
		}},
	},
	TechCareers: {
		Key: "carrerastecnicas", Title: "CARRERAS TÉCNICAS", Group: groupWebsite,
		Sources: []Source{{
			Title: "Carreras Técnicas", Endpoint: "carreras/tecnicas", Envelope: "carreras",
			Columns: []Column{
				{Field: "id_carrera_tecnica", Label: "ID"},
				{Field: "nombre_carrera_tecnica", Label: "Nombre"},
				{Field: "descripcion_carrera_tecnica", Label: "Descripción"},
				{Field: "foto_carrera_tecnica", Label: "Foto", Image: true},
			},
		}},
	},
	StudentsInfo: {
		Key: "infoalumnos", Title: "ALUMNOS", Group: groupInfo, PerPage: 2,
		Sources: []Source{{
			Title: "Información de Alumnos", Endpoint: "alumno",
			Columns: []Column{
				{Field: "id_alumnos", Label: "ID"},
				{Field: "nombre_alumnos", Label: "Nombre"},
				{Field: "app_alumnos", Label: "Apellido Paterno"},
				{Field: "apm_alumnos", Label: "Apellido Materno"},
				{Field: "curp_alumnos", Label: "CURP"},
				{Field: "nocontrol_alumnos", Label: "No. Control"},
				{Field: "telefono_alumnos", Label: "Teléfono"},
				{Field: "municipio_alumnos", Label: "Municipio"},
			},
		}},
	},
}

var viewsByKey = func() map[string]View {
	m := make(map[string]View, viewCount)
	for v := View(0); v < viewCount; v++ {
		m[specs[v].Key] = v
	}
	return m
}()

func idName(title, endpoint, envelope, idField, nameField string) Source {
	return Source{
		Title:    title,
		Endpoint: endpoint,
		Envelope: envelope,
		Columns:  []Column{{Field: idField, Label: "ID"}, {Field: nameField, Label: "Nombre"}},
	}
}

// ParseView maps a view key (as used in the admin menu) to its View.
func ParseView(key string) (View, error) {
	if v, ok := viewsByKey[key]; ok {
		return v, nil
	}
	return 0, errors.Wrapf(ErrUnknownView, "%q", key)
}

// AllViews lists every view in menu order.
func AllViews() []View {
	views := make([]View, 0, viewCount)
	for v := View(0); v < viewCount; v++ {
		views = append(views, v)
	}
	return views
}

func (v View) Valid() bool { return v >= 0 && v < viewCount }

func (v View) Spec() Spec {
	if !v.Valid() {
		return Spec{}
	}
	return specs[v]
}

func (v View) Key() string { return v.Spec().Key }

func (v View) String() string { return v.Key() }

// Keys returns every view key, in menu order.
func Keys() []string {
	keys := make([]string, 0, viewCount)
	for v := View(0); v < viewCount; v++ {
		keys = append(keys, specs[v].Key)
	}
	return keys
}
